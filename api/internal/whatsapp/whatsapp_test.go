package whatsapp

import "testing"

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "already digits", in: "5511999990000", want: "5511999990000"},
		{name: "whatsapp prefix", in: "whatsapp:+5511999990000", want: "5511999990000"},
		{name: "formatted", in: "+55 (11) 99999-0000", want: "5511999990000"},
		{name: "empty", in: "", want: ""},
		{name: "whitespace", in: "  whatsapp: +55 11 9 9999 0000 ", want: "5511999990000"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizePhone(tc.in); got != tc.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseEvent(t *testing.T) {
	t.Parallel()

	body := []byte(`{
		"entry": [{
			"changes": [{
				"value": {
					"messages": [
						{"from": "5511999990000", "type": "text", "text": {"body": "oi"}},
						{"from": "5511999990000", "type": "image", "image": {"id": "media-1", "mime_type": "image/jpeg"}}
					]
				}
			}]
		}]
	}`)

	msgs := ParseEvent(body)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Type != "text" || msgs[0].Text == nil || msgs[0].Text.Body != "oi" {
		t.Errorf("text message = %+v", msgs[0])
	}
	if msgs[1].Type != "image" || msgs[1].Image == nil || msgs[1].Image.ID != "media-1" {
		t.Errorf("image message = %+v", msgs[1])
	}
}

func TestParseEventTolerant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: "not json"},
		{name: "empty object", body: "{}"},
		{name: "status event", body: `{"entry":[{"changes":[{"value":{"statuses":[{"id":"x"}]}}]}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if msgs := ParseEvent([]byte(tc.body)); len(msgs) != 0 {
				t.Errorf("ParseEvent(%q) = %v, want empty", tc.body, msgs)
			}
		})
	}
}

func TestSendRequiresCredentials(t *testing.T) {
	t.Parallel()

	c := New("", "")
	if err := c.SendText(t.Context(), "5511999990000", "oi"); err == nil {
		t.Error("SendText without credentials should fail")
	}
	if _, err := c.DownloadMedia(t.Context(), "media-1"); err == nil {
		t.Error("DownloadMedia without token should fail")
	}
}
