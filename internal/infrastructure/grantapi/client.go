// Package grantapi talks to the external services that grant units to a game
// account and describe the account.
package grantapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-like-relay/internal/domain"
)

const (
	uidPlaceholder       = "{uid}"
	defaultGrantTimeout  = 10 * time.Second
	defaultLookupTimeout = 5 * time.Second
	maxBodyBytes         = 1 << 20
)

// Client calls the grant and player-info endpoints. Both URLs are templates
// in which {uid} is replaced by the escaped account ID.
type Client struct {
	grantURL      string
	lookupURL     string
	grantTimeout  time.Duration
	lookupTimeout time.Duration
	http          *http.Client
}

type Options struct {
	GrantURL      string
	LookupURL     string // empty disables Lookup
	GrantTimeout  time.Duration
	LookupTimeout time.Duration
	HTTPClient    *http.Client
}

func New(o Options) *Client {
	c := &Client{
		grantURL:      o.GrantURL,
		lookupURL:     o.LookupURL,
		grantTimeout:  o.GrantTimeout,
		lookupTimeout: o.LookupTimeout,
		http:          o.HTTPClient,
	}
	if c.grantTimeout <= 0 {
		c.grantTimeout = defaultGrantTimeout
	}
	if c.lookupTimeout <= 0 {
		c.lookupTimeout = defaultLookupTimeout
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c
}

type grantResponse struct {
	PlayerNickname     string `json:"PlayerNickname"`
	LikesbeforeCommand int    `json:"LikesbeforeCommand"`
	LikesafterCommand  int    `json:"LikesafterCommand"`
	LikesGivenByAPI    int    `json:"LikesGivenByAPI"`
}

type playerInfoResponse struct {
	PlayerNickname string `json:"PlayerNickname"`
	Region         string `json:"region"`
}

// Grant asks the grant API to deliver units to accountID. A zero Given in the
// result means the account already reached the external daily cap.
// Every failure wraps domain.ErrGrantAPI.
func (c *Client) Grant(ctx context.Context, accountID string) (domain.GrantResult, error) {
	var body grantResponse
	if err := c.getJSON(ctx, c.grantURL, accountID, c.grantTimeout, &body); err != nil {
		return domain.GrantResult{}, fmt.Errorf("%w: %v", domain.ErrGrantAPI, err)
	}
	return domain.GrantResult{
		Nickname: body.PlayerNickname,
		Before:   body.LikesbeforeCommand,
		After:    body.LikesafterCommand,
		Given:    body.LikesGivenByAPI,
	}, nil
}

// Lookup fetches the nickname and region of accountID. Failures wrap domain.ErrLookup;
// callers treat them as non-fatal.
func (c *Client) Lookup(ctx context.Context, accountID string) (domain.PlayerInfo, error) {
	if c.lookupURL == "" {
		return domain.PlayerInfo{}, fmt.Errorf("%w: player info API not configured", domain.ErrLookup)
	}
	var body playerInfoResponse
	if err := c.getJSON(ctx, c.lookupURL, accountID, c.lookupTimeout, &body); err != nil {
		return domain.PlayerInfo{}, fmt.Errorf("%w: %v", domain.ErrLookup, err)
	}
	return domain.PlayerInfo{Nickname: body.PlayerNickname, Region: body.Region}, nil
}

func (c *Client) getJSON(ctx context.Context, tmpl, accountID string, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := strings.ReplaceAll(tmpl, uidPlaceholder, url.QueryEscape(accountID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
