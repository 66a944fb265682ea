package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"

	"github.com/dukerupert/larder/internal/notify"
)

const postmarkURL = "https://api.postmarkapp.com/email"

// Client sends expiry reminders through the Postmark HTTP API.
type Client struct {
	serverToken string
	fromEmail   string
	toEmail     string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// NewClient creates a Postmark client. baseURL is the public address of the
// app and prefixes the product links in each message.
func NewClient(serverToken, fromEmail, toEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		toEmail:     toEmail,
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if a token, sender and recipient are all set.
func (c *Client) Configured() bool {
	return c.serverToken != "" && c.fromEmail != "" && c.toEmail != ""
}

func (c *Client) Name() string { return "postmark" }

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
	Tag      string `json:"Tag,omitempty"`
}

// Notify emails the reminder to the configured recipient.
func (c *Client) Notify(ctx context.Context, n notify.Notification) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured")
	}

	link := c.baseURL + n.URL
	textBody := fmt.Sprintf("%s\n\nOpen it in your larder: %s", n.Body, link)
	htmlBody := fmt.Sprintf(`<p>%s</p><p><a href="%s">Open in larder</a></p>`,
		html.EscapeString(n.Body), html.EscapeString(link))

	return c.send(ctx, postmarkEmail{
		From:     c.fromEmail,
		To:       c.toEmail,
		Subject:  fmt.Sprintf("%s: %s", n.Title, n.Body),
		HtmlBody: htmlBody,
		TextBody: textBody,
		Tag:      n.Channel,
	})
}

func (c *Client) send(ctx context.Context, payload postmarkEmail) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postmarkURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
