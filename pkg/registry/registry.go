// Package registry fetches release metadata from a PyPI-compatible package
// index.
//
// The client makes a single best-effort call per lookup: no retries, and no
// caching unless a real cache backend is supplied. Only the keys of the
// releases mapping matter to the update checker; the per-release file
// descriptors are never decoded.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nixtools/pypiup/pkg/cache"
)

const httpTimeout = 10 * time.Second

// DefaultTTL is how long release listings stay cached when a cache backend
// is enabled.
const DefaultTTL = time.Hour

var (
	// ErrNotFound is returned when the index has no such package.
	ErrNotFound = errors.New("package not found")

	// ErrFetchFailed is returned for any other unsuccessful response.
	ErrFetchFailed = errors.New("fetch failed")
)

// Releases holds everything the checker needs from one index lookup.
type Releases struct {
	Name     string   `json:"name"`
	Versions []string `json:"versions"`
}

// Client queries one package index. It is safe for concurrent use.
type Client struct {
	http       *http.Client
	cache      cache.Cache
	ttl        time.Duration
	indexURL   string
	projectURL string
}

// NewClient creates a client for the index at indexURL. projectURL is the
// base for human-readable package pages. Pass cache.NewNull() to disable
// caching.
func NewClient(indexURL, projectURL string, c cache.Cache) *Client {
	if c == nil {
		c = cache.NewNull()
	}
	return &Client{
		http:       &http.Client{Timeout: httpTimeout},
		cache:      c,
		ttl:        DefaultTTL,
		indexURL:   indexURL,
		projectURL: projectURL,
	}
}

// FetchReleases returns the set of raw version strings the index knows for
// pkg, via GET {index}/{pkg}/json.
func (c *Client) FetchReleases(ctx context.Context, pkg string) (*Releases, error) {
	key := cache.Key("pypi", pkg)

	if data, hit, err := c.cache.Get(ctx, key); err == nil && hit {
		var rel Releases
		if err := json.Unmarshal(data, &rel); err == nil {
			return &rel, nil
		}
	}

	rel, err := c.fetch(ctx, pkg)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rel); err == nil {
		_ = c.cache.Set(ctx, key, data, c.ttl)
	}
	return rel, nil
}

// ProjectURL returns the human-readable project page for pkg,
// e.g. "https://pypi.org/project/requests/".
func (c *Client) ProjectURL(pkg string) string {
	return fmt.Sprintf("%s/%s/", c.projectURL, pkg)
}

func (c *Client) fetch(ctx context.Context, pkg string) (*Releases, error) {
	url := fmt.Sprintf("%s/%s/json", c.indexURL, pkg)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, pkg)
	default:
		return nil, fmt.Errorf("%w: %s: status %d", ErrFetchFailed, url, resp.StatusCode)
	}

	var data struct {
		Info struct {
			Name string `json:"name"`
		} `json:"info"`
		// Values are arrays of release-file descriptors; only the keys
		// matter, so they stay undecoded.
		Releases map[string]json.RawMessage `json:"releases"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
	}

	versions := make([]string, 0, len(data.Releases))
	for v := range data.Releases {
		versions = append(versions, v)
	}

	name := data.Info.Name
	if name == "" {
		name = pkg
	}
	return &Releases{Name: name, Versions: versions}, nil
}
