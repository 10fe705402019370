package whatsapp

import "encoding/json"

// Event is the subset of the Cloud API webhook payload the bot reads.
type Event struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []Message `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type Message struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Image *struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
	} `json:"image"`
}

// ParseEvent decodes a webhook POST body and flattens it to the contained
// messages. Unknown or empty payloads yield an empty slice, not an error:
// Meta sends many event kinds the bot does not care about.
func ParseEvent(body []byte) []Message {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil
	}
	var msgs []Message
	for _, e := range ev.Entry {
		for _, ch := range e.Changes {
			msgs = append(msgs, ch.Value.Messages...)
		}
	}
	return msgs
}
