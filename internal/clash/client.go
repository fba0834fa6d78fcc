// Package clash is the client for the external Clash of Clans statistics
// API. The service only proxies it: given an entity tag it returns the raw
// JSON document or fails with the upstream status.
package clash

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the production statistics API endpoint.
const DefaultBaseURL = "https://api.clashofclans.com/v1"

// placeholderToken is the sample value shipped in .env templates; it is
// treated the same as an unset token.
const placeholderToken = "your_api_token_here"

// UpstreamError reports a non-2xx answer from the statistics API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("clash api error %d: %s", e.StatusCode, e.Body)
}

// API is the read-only surface the handlers consume.
type API interface {
	Configured() bool
	Clan(ctx context.Context, tag string) (json.RawMessage, error)
	CurrentWar(ctx context.Context, tag string) (json.RawMessage, error)
	LeagueGroup(ctx context.Context, tag string) (json.RawMessage, error)
	Player(ctx context.Context, tag string) (json.RawMessage, error)
}

// Client calls the statistics API over HTTP with a bearer token.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient builds a client; an empty baseURL falls back to DefaultBaseURL.
func NewClient(baseURL, token string, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 20 * time.Second},
		log:     logger,
	}
}

// Configured reports whether a usable API token is present.
func (c *Client) Configured() bool {
	return c.token != "" && c.token != placeholderToken
}

func (c *Client) doRequest(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 400 {
		c.log.Error().Int("status", res.StatusCode).Str("path", path).Msg("clash api request failed")
		return nil, &UpstreamError{StatusCode: res.StatusCode, Body: string(body)}
	}
	return body, nil
}

// tagPath escapes a tag (with its '#' restored) for use in a URL path.
func tagPath(tag string) string {
	return url.PathEscape("#" + tag)
}

// Clan fetches the canonical clan document.
func (c *Client) Clan(ctx context.Context, tag string) (json.RawMessage, error) {
	return c.doRequest(ctx, "/clans/"+tagPath(tag))
}

// CurrentWar fetches the clan's current war.
func (c *Client) CurrentWar(ctx context.Context, tag string) (json.RawMessage, error) {
	return c.doRequest(ctx, "/clans/"+tagPath(tag)+"/currentwar")
}

// LeagueGroup fetches the clan's current war league group.
func (c *Client) LeagueGroup(ctx context.Context, tag string) (json.RawMessage, error) {
	return c.doRequest(ctx, "/clans/"+tagPath(tag)+"/currentwar/leaguegroup")
}

// Player fetches the canonical player document.
func (c *Client) Player(ctx context.Context, tag string) (json.RawMessage, error) {
	return c.doRequest(ctx, "/players/"+tagPath(tag))
}
