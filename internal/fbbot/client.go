// Package fbbot adapts the conversation engine to Facebook Messenger: a
// chi webhook receives page events, and a Graph API client sends text and
// generic-template galleries back.
package fbbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultGraphEndpoint = "https://graph.facebook.com/v2.6/me/messages"

// galleryLimit is the Messenger cap on generic-template elements.
const galleryLimit = 10

// Button is a postback button on a card or under a text message.
type Button struct {
	Title   string
	Payload string
}

// Element is one generic-template card.
type Element struct {
	Title    string
	Subtitle string
	ImageURL string
	Buttons  []Button
}

// Client sends messages through the Graph API on behalf of the page.
type Client struct {
	endpoint  string
	pageToken string
	http      *http.Client
}

// NewClient builds a Graph API client. An empty endpoint selects the
// production Graph URL.
func NewClient(endpoint, pageToken string, client *http.Client) *Client {
	if endpoint == "" {
		endpoint = defaultGraphEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		endpoint:  strings.TrimRight(endpoint, "/"),
		pageToken: pageToken,
		http:      client,
	}
}

// SendText delivers a plain text message.
func (c *Client) SendText(ctx context.Context, recipientID, text string) error {
	body := map[string]any{
		"recipient": map[string]string{"id": recipientID},
		"message":   map[string]string{"text": text},
	}
	return c.send(ctx, body)
}

// SendButtons delivers a text message with postback buttons.
func (c *Client) SendButtons(ctx context.Context, recipientID, text string, buttons []Button) error {
	body := map[string]any{
		"recipient": map[string]string{"id": recipientID},
		"message": map[string]any{
			"attachment": map[string]any{
				"type": "template",
				"payload": map[string]any{
					"template_type": "button",
					"text":          text,
					"buttons":       wireButtons(buttons),
				},
			},
		},
	}
	return c.send(ctx, body)
}

// SendGallery delivers a generic-template carousel. Messenger refuses
// more than ten cards, so longer galleries are truncated.
func (c *Client) SendGallery(ctx context.Context, recipientID string, elements []Element) error {
	if len(elements) > galleryLimit {
		elements = elements[:galleryLimit]
	}
	cards := make([]map[string]any, 0, len(elements))
	for _, el := range elements {
		card := map[string]any{
			"title":   el.Title,
			"buttons": wireButtons(el.Buttons),
		}
		if el.Subtitle != "" {
			card["subtitle"] = el.Subtitle
		}
		if el.ImageURL != "" {
			card["image_url"] = el.ImageURL
		}
		cards = append(cards, card)
	}
	body := map[string]any{
		"recipient": map[string]string{"id": recipientID},
		"message": map[string]any{
			"attachment": map[string]any{
				"type": "template",
				"payload": map[string]any{
					"template_type": "generic",
					"elements":      cards,
				},
			},
		},
	}
	return c.send(ctx, body)
}

func wireButtons(buttons []Button) []map[string]string {
	out := make([]map[string]string, 0, len(buttons))
	for _, b := range buttons {
		out = append(out, map[string]string{
			"type":    "postback",
			"title":   b.Title,
			"payload": b.Payload,
		})
	}
	return out
}

func (c *Client) send(ctx context.Context, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("fbbot: encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"?access_token="+c.pageToken, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("fbbot: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fbbot: send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fbbot: send message: status %s: %s", resp.Status, strings.TrimSpace(string(excerpt)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
