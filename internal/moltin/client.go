// Package moltin is a typed client for the Moltin commerce API: catalog,
// carts, files, and flow entries.
package moltin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	apiVersion = "v2"
	// tokenExpiryShift refreshes the token slightly before the server-side expiry.
	tokenExpiryShift = 10 * time.Second
)

// Client talks to the Moltin commerce API using client-credentials OAuth.
// The access token is cached and refreshed ahead of its expiry.
type Client struct {
	endpoint string
	clientID string
	secret   string
	http     *http.Client

	mu           sync.Mutex
	token        string
	tokenExpires time.Time
}

// NewClient constructs a Client around the provided HTTP client.
func NewClient(endpoint, clientID, secret string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		clientID: clientID,
		secret:   secret,
		http:     client,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Expires     int64  `json:"expires"`
}

// authToken returns a valid "Bearer <token>" header value, refreshing it
// when the cached one is missing or about to expire.
func (c *Client) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpires) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.secret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/oauth/access_token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("moltin: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("moltin: fetch token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("moltin: fetch token: unexpected status %s", resp.Status)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("moltin: decode token response: %w", err)
	}

	c.token = tok.TokenType + " " + tok.AccessToken
	c.tokenExpires = time.Unix(tok.Expires, 0).Add(-tokenExpiryShift)
	return c.token, nil
}

// do performs an authenticated API request. A non-nil body is JSON
// encoded; a non-nil out receives the decoded response body.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	token, err := c.authToken(ctx)
	if err != nil {
		return err
	}

	u := c.endpoint + "/" + apiVersion + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("moltin: encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("moltin: build request: %w", err)
	}
	req.Header.Set("Authorization", token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("moltin: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("moltin: %s %s: status %s: %s", method, path, resp.Status, strings.TrimSpace(string(excerpt)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("moltin: decode %s %s response: %w", method, path, err)
	}
	return nil
}
