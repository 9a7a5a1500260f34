// SPDX-License-Identifier: MPL-2.0

package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// maxJSONResponseBytes is the upper bound on the release feed response
	// size (10 MB). Prevents unbounded memory consumption from a malformed
	// or hostile endpoint.
	maxJSONResponseBytes = 10 << 20

	// defaultListTimeout bounds the release feed fetch.
	defaultListTimeout = 30 * time.Second

	// defaultDownloadTimeout bounds an artifact download. AppImages are
	// hundreds of megabytes, so this is much longer than the list timeout.
	defaultDownloadTimeout = 15 * time.Minute
)

// ErrNoReleases is returned when the feed contains no release entries.
var ErrNoReleases = errors.New("release feed is empty")

type (
	// FetchError classifies a failed network interaction: unreachable host,
	// timeout, or a non-2xx response. URL is redacted of query and fragment.
	FetchError struct {
		URL        string
		StatusCode int   // 0 when no response was received
		Cause      error // nil when the failure is a bad status code
	}

	// Release is one entry of the project's release feed.
	Release struct {
		Tag         string // Git tag, e.g. "3.2.0"
		Name        string // Human-readable release title
		ReleasedAt  string // ISO 8601 timestamp
		Description string // Markdown release notes
	}

	// gitlabRelease is the JSON wire format of a release feed entry.
	gitlabRelease struct {
		Tag         string `json:"tag"`
		Name        string `json:"name"`
		ReleasedAt  string `json:"released_at"`
		Description string `json:"description"`
	}

	// Client fetches the release feed and downloads artifacts for a single
	// GitLab project.
	Client struct {
		httpClient      *http.Client
		releasesURL     string // Full URL of the /-/releases.json feed
		userAgent       string // User-Agent header value
		listTimeout     time.Duration
		downloadTimeout time.Duration
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// Error formats the fetch failure with the redacted URL and, when present,
// the unexpected status code.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Cause)
}

// Unwrap returns the transport-level cause, if any.
func (e *FetchError) Unwrap() error { return e.Cause }

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy
// configurations.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(g *Client) {
		g.httpClient = c
	}
}

// WithReleasesURL overrides the release feed URL, primarily for test servers.
func WithReleasesURL(u string) ClientOption {
	return func(g *Client) {
		g.releasesURL = u
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(g *Client) {
		g.userAgent = ua
	}
}

// WithTimeouts overrides the per-call deadlines for the feed fetch and the
// artifact download. Zero values keep the defaults.
func WithTimeouts(list, download time.Duration) ClientOption {
	return func(g *Client) {
		if list > 0 {
			g.listTimeout = list
		}
		if download > 0 {
			g.downloadTimeout = download
		}
	}
}

// NewClient creates a Client for the given release feed URL.
func NewClient(releasesURL string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:      http.DefaultClient,
		releasesURL:     releasesURL,
		userAgent:       "aagl-sync/dev",
		listTimeout:     defaultListTimeout,
		downloadTimeout: defaultDownloadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListReleases fetches and decodes the project's release feed. The feed is
// a plain JSON array; ordering is whatever GitLab emits, so callers must
// select the entry they want (see LatestByDate).
func (c *Client) ListReleases(ctx context.Context) ([]Release, error) {
	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	resp, err := c.doRequest(ctx, c.releasesURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: redactURL(c.releasesURL), StatusCode: resp.StatusCode}
	}

	var raw []gitlabRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding release feed: %w", err)
	}

	releases := make([]Release, 0, len(raw))
	for _, gr := range raw {
		releases = append(releases, Release(gr))
	}

	return releases, nil
}

// LatestByDate returns the release with the maximal released_at timestamp.
// ISO 8601 timestamps order correctly under string comparison, so no time
// parsing is needed. Returns ErrNoReleases on an empty slice.
func LatestByDate(releases []Release) (*Release, error) {
	if len(releases) == 0 {
		return nil, ErrNoReleases
	}

	latest := &releases[0]
	for i := range releases[1:] {
		if releases[i+1].ReleasedAt > latest.ReleasedAt {
			latest = &releases[i+1]
		}
	}

	return latest, nil
}

// DownloadArtifact downloads the file at the given URL and returns the
// response body as a streaming reader. The caller is responsible for
// closing the returned ReadCloser; the download deadline stays armed until
// the returned cancel func runs, so call it only after the body is drained.
func (c *Client) DownloadArtifact(ctx context.Context, artifactURL string) (io.ReadCloser, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)

	resp, err := c.doRequest(ctx, artifactURL)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, nil, &FetchError{URL: redactURL(artifactURL), StatusCode: resp.StatusCode}
	}

	return resp.Body, cancel, nil
}

// doRequest creates and executes a GET request with common headers.
// Transport failures (including deadline expiry) come back as *FetchError.
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: redactURL(reqURL), Cause: err}
	}

	return resp, nil
}

// redactURL strips query parameters and fragments from a URL for safe
// inclusion in error messages.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
