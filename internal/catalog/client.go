// Package catalog is the HTTP client for the streaming service: browse and
// search the remote catalog, resolve authenticated audio streams, and
// exchange refresh tokens. Protocol, codec and decryption concerns live on
// the server side; this client only speaks the JSON API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avrille/cadenza/internal/session"
)

const defaultTimeout = 30 * time.Second

// TokenSource supplies bearer tokens for API calls.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client talks to the streaming catalog API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// New creates a catalog client for the given server URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// SetTokenSource wires the session manager in after construction; the
// session manager itself needs the client as its Refresher.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// SearchTracks searches the catalog for tracks matching the query.
func (c *Client) SearchTracks(ctx context.Context, query string) ([]Track, error) {
	var res searchResponse
	params := url.Values{"q": {query}, "type": {"track"}}
	if err := c.getJSON(ctx, "/v1/search?"+params.Encode(), &res); err != nil {
		return nil, fmt.Errorf("search tracks: %w", err)
	}
	return res.Tracks, nil
}

// Playlists lists the user's playlists.
func (c *Client) Playlists(ctx context.Context) ([]Playlist, error) {
	var res playlistsResponse
	if err := c.getJSON(ctx, "/v1/playlists", &res); err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	return res.Playlists, nil
}

// PlaylistTracks fetches the tracks of a playlist.
func (c *Client) PlaylistTracks(ctx context.Context, id string) ([]Track, error) {
	var res playlistTracksResponse
	path := "/v1/playlists/" + url.PathEscape(id) + "/tracks"
	if err := c.getJSON(ctx, path, &res); err != nil {
		return nil, fmt.Errorf("playlist tracks: %w", err)
	}
	return res.Tracks, nil
}

// OpenStream returns the authenticated audio stream for a track and its
// size in bytes (-1 if unknown). Implements the backend's stream source.
func (c *Client) OpenStream(ctx context.Context, trackID string) (io.ReadCloser, int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet,
		"/v1/tracks/"+url.PathEscape(trackID)+"/stream", nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, statusError(resp.StatusCode, "stream "+trackID)
	}
	return resp.Body, resp.ContentLength, nil
}

// Refresh exchanges a refresh token for a fresh token. Implements
// session.Refresher: a rejected grant wraps session.ErrAuthRequired so the
// manager invalidates instead of retrying.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*session.Token, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token refresh: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("token refresh rejected (%d): %w",
			resp.StatusCode, session.ErrAuthRequired)
	default:
		return nil, fmt.Errorf("token refresh failed: status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("token refresh: decode response: %w", err)
	}
	tok := &session.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}
	if tok.RefreshToken == "" {
		// Some servers rotate refresh tokens only occasionally.
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.tokens != nil {
		tok, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func statusError(code int, what string) error {
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return fmt.Errorf("%s: status %d: %w", what, code, session.ErrAuthRequired)
	}
	return fmt.Errorf("%s: status %d", what, code)
}
