// Package catalog provides access to the streaming service's catalog API:
// login, track/album/playlist metadata, signed stream URLs and favorites.
package catalog

import (
	"context"
	"crypto/md5" //nolint:gosec // the service's request signing requires md5
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"
)

// ErrNotFound is returned when the referenced catalog item does not exist.
var ErrNotFound = errors.New("catalog: not found")

// ServiceError wraps a catalog-side failure (HTTP error, malformed body).
type ServiceError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog: %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("catalog: %s: status %d", e.Endpoint, e.Status)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Client defines the catalog service contract.
type Client interface {
	Login(ctx context.Context) error
	Track(ctx context.Context, id string) (*Track, error)
	Album(ctx context.Context, id string) (*Album, error)
	Playlist(ctx context.Context, id string) (*Playlist, error)
	Search(ctx context.Context, query string) (*SearchResults, error)
	Favorites(ctx context.Context) (*Favorites, error)
	SetFavorite(ctx context.Context, kind FavoriteKind, id string, favorite bool) error
	StreamURL(ctx context.Context, trackID string) (*StreamDescriptor, error)
}

// Verify httpClient implements Client at compile time.
var _ Client = (*httpClient)(nil)

// Credentials identify a subscriber account.
// PasswordHash is the md5 hex digest of the password, as the service expects.
type Credentials struct {
	Username     string
	PasswordHash string
}

type httpClient struct {
	baseURL    string
	appID      string
	appSecret  string
	creds      Credentials
	maxQuality int
	http       *http.Client

	// loginMu serializes logins so concurrent callers trigger one.
	loginMu sync.Mutex

	mu        sync.Mutex
	userToken string
}

// NewClient creates a catalog client. Login is lazy: the first
// authenticated call triggers it if no token is held.
func NewClient(baseURL, appID, appSecret string, creds Credentials, maxQuality int) Client {
	return &httpClient{
		baseURL:    baseURL,
		appID:      appID,
		appSecret:  appSecret,
		creds:      creds,
		maxQuality: maxQuality,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

// Login authenticates and stores the user token for subsequent calls.
func (c *httpClient) Login(ctx context.Context) error {
	params := url.Values{}
	params.Set("username", c.creds.Username)
	params.Set("password", c.creds.PasswordHash)

	var resp struct {
		UserAuthToken string `json:"user_auth_token"`
	}
	if err := c.get(ctx, "user/login", params, &resp); err != nil {
		return err
	}
	if resp.UserAuthToken == "" {
		return &ServiceError{Endpoint: "user/login", Err: errors.New("empty auth token")}
	}
	c.mu.Lock()
	c.userToken = resp.UserAuthToken
	c.mu.Unlock()
	return nil
}

func (c *httpClient) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userToken
}

func (c *httpClient) ensureLogin(ctx context.Context) error {
	if c.token() != "" {
		return nil
	}
	c.loginMu.Lock()
	defer c.loginMu.Unlock()
	if c.token() != "" {
		return nil // another caller logged in while we waited
	}
	return c.Login(ctx)
}

func (c *httpClient) Track(ctx context.Context, id string) (*Track, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("track_id", id)

	var resp trackResponse
	if err := c.get(ctx, "track/get", params, &resp); err != nil {
		return nil, err
	}
	t := resp.toTrack()
	return &t, nil
}

func (c *httpClient) Album(ctx context.Context, id string) (*Album, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("album_id", id)

	var resp albumResponse
	if err := c.get(ctx, "album/get", params, &resp); err != nil {
		return nil, err
	}
	a := resp.toAlbum()
	return &a, nil
}

func (c *httpClient) Playlist(ctx context.Context, id string) (*Playlist, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("playlist_id", id)
	params.Set("extra", "tracks")
	params.Set("limit", "500")

	var resp playlistResponse
	if err := c.get(ctx, "playlist/get", params, &resp); err != nil {
		return nil, err
	}
	p := resp.toPlaylist()
	return &p, nil
}

func (c *httpClient) Search(ctx context.Context, query string) (*SearchResults, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", "20")

	var resp searchResponse
	if err := c.get(ctx, "catalog/search", params, &resp); err != nil {
		return nil, err
	}
	return resp.toResults(), nil
}

func (c *httpClient) Favorites(ctx context.Context) (*Favorites, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("limit", "500")

	var resp favoritesResponse
	if err := c.get(ctx, "favorite/getUserFavorites", params, &resp); err != nil {
		return nil, err
	}
	return resp.toFavorites(), nil
}

func (c *httpClient) SetFavorite(ctx context.Context, kind FavoriteKind, id string, favorite bool) error {
	if err := c.ensureLogin(ctx); err != nil {
		return err
	}

	endpoint := "favorite/create"
	if !favorite {
		endpoint = "favorite/delete"
	}

	params := url.Values{}
	switch kind {
	case FavoriteTrack:
		params.Set("track_ids", id)
	case FavoriteAlbum:
		params.Set("album_ids", id)
	case FavoritePlaylist:
		params.Set("playlist_ids", id)
	}

	var resp struct {
		Status string `json:"status"`
	}
	return c.get(ctx, endpoint, params, &resp)
}

// StreamURL obtains a signed, expiring stream URL for a track.
// The request carries a signature over endpoint, params and timestamp.
func (c *httpClient) StreamURL(ctx context.Context, trackID string) (*StreamDescriptor, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig := c.sign("trackgetFileUrl", map[string]string{
		"format_id": strconv.Itoa(c.maxQuality),
		"track_id":  trackID,
	}, ts)

	params := url.Values{}
	params.Set("track_id", trackID)
	params.Set("format_id", strconv.Itoa(c.maxQuality))
	params.Set("intent", "stream")
	params.Set("request_ts", ts)
	params.Set("request_sig", sig)

	var resp streamResponse
	if err := c.get(ctx, "track/getFileUrl", params, &resp); err != nil {
		return nil, err
	}
	if resp.URL == "" {
		return nil, &ServiceError{Endpoint: "track/getFileUrl", Err: errors.New("no stream URL in response")}
	}
	return resp.toDescriptor(trackID), nil
}

// sign computes the request signature: md5 over the endpoint name (slashes
// removed), the sorted params, the timestamp and the app secret.
func (c *httpClient) sign(endpoint string, params map[string]string, ts string) string {
	sigSrc := endpoint
	// params must be concatenated in key order
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sigSrc += k + params[k]
	}
	sigSrc += ts + c.appSecret

	return fmt.Sprintf("%x", md5.Sum([]byte(sigSrc))) //nolint:gosec // service contract
}

func (c *httpClient) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	reqURL := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &ServiceError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("X-App-Id", c.appID)
	if tok := c.token(); tok != "" {
		req.Header.Set("X-User-Auth-Token", tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &ServiceError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	case resp.StatusCode != http.StatusOK:
		return &ServiceError{Endpoint: endpoint, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServiceError{Endpoint: endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
