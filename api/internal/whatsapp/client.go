// Package whatsapp is a thin client for the Meta WhatsApp Cloud API:
// outbound text/image messages and inbound media download.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const graphBase = "https://graph.facebook.com/v17.0"

type Client struct {
	Token   string
	PhoneID string
	httpc   *http.Client
}

func New(token, phoneID string) *Client {
	return &Client{
		Token:   strings.TrimSpace(token),
		PhoneID: strings.TrimSpace(phoneID),
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
}

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone strips the "whatsapp:" prefix and every non-digit, the
// format the Graph API expects.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "whatsapp:", ""))
	return nonDigits.ReplaceAllString(s, "")
}

// SendText delivers a plain text message to the recipient.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	return c.send(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"to":                NormalizePhone(to),
		"type":              "text",
		"text":              map[string]any{"body": body},
	})
}

// SendImage delivers an image by public link with a caption.
func (c *Client) SendImage(ctx context.Context, to, link, caption string) error {
	return c.send(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"to":                NormalizePhone(to),
		"type":              "image",
		"image":             map[string]any{"link": link, "caption": caption},
	})
}

func (c *Client) send(ctx context.Context, payload map[string]any) error {
	if c.Token == "" || c.PhoneID == "" {
		return fmt.Errorf("META_WHATSAPP_TOKEN/META_WHATSAPP_PHONE_ID are empty")
	}
	body, _ := json.Marshal(payload)
	url := fmt.Sprintf("%s/%s/messages", graphBase, c.PhoneID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		x, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp cloud api %d: %s", resp.StatusCode, string(x))
	}
	return nil
}

// DownloadMedia fetches inbound media in two steps: resolve the media id to
// a short-lived URL, then download the bytes with the same bearer token.
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) ([]byte, error) {
	if c.Token == "" {
		return nil, fmt.Errorf("META_WHATSAPP_TOKEN is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, graphBase+"/"+mediaID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("resolve media %s: %d: %s", mediaID, resp.StatusCode, string(x))
	}
	var meta struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, err
	}
	if meta.URL == "" {
		return nil, fmt.Errorf("resolve media %s: empty url", mediaID)
	}

	req2, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return nil, err
	}
	req2.Header.Set("Authorization", "Bearer "+c.Token)
	resp2, err := c.httpc.Do(req2)
	if err != nil {
		return nil, err
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download media %s: status %d", mediaID, resp2.StatusCode)
	}
	return io.ReadAll(resp2.Body)
}
