// Package shortener wraps a shortner.in-compatible link shortening API.
package shortener

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 5 * time.Second

// Client calls GET <endpoint>?api=<key>&url=<long> and reads shortenedUrl from the reply.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func New(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: defaultTimeout},
	}
}

type shortenResponse struct {
	Status       string `json:"status"`
	ShortenedURL string `json:"shortenedUrl"`
	Message      string `json:"message"`
}

func (c *Client) Shorten(ctx context.Context, longURL string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse shortener endpoint: %w", err)
	}
	q := u.Query()
	q.Set("api", c.apiKey)
	q.Set("url", longURL)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("shorten link: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shorten link: unexpected status %d", resp.StatusCode)
	}
	var body shortenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode shortener response: %w", err)
	}
	if body.ShortenedURL == "" {
		return "", fmt.Errorf("shortener returned no link: %s", body.Message)
	}
	return body.ShortenedURL, nil
}
