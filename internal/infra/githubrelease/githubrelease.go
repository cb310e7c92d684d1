// Package githubrelease fetches release metadata from the GitHub releases
// API for the update manager's walk-back asset resolution.
package githubrelease

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// Asset is one file attached to a release.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
	Size        int64  `json:"size"`
}

// Release is one GitHub release, trimmed to the fields the walk-back
// algorithm needs.
type Release struct {
	TagName     string    `json:"tag_name"`
	PublishedAt time.Time `json:"published_at"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	Assets      []Asset   `json:"assets"`
}

// Client lists releases for a single owner/repo.
type Client struct {
	BaseURL   string // default https://api.github.com
	UserAgent string
	HTTP      *http.Client
}

// New creates a Client with a 10s default timeout, sized for a metadata
// listing call rather than a large asset download.
func New(baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	if userAgent == "" {
		userAgent = "saba-core"
	}
	return &Client{BaseURL: baseURL, UserAgent: userAgent, HTTP: &http.Client{Timeout: 10 * time.Second}}
}

// ListReleases returns up to n most recent releases for owner/repo, sorted
// newest-first by PublishedAt (ties broken by tag name, descending).
func (c *Client) ListReleases(owner, repo string, n int) ([]Release, error) {
	if n <= 0 {
		n = 30
	}
	url := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d", c.BaseURL, owner, repo, n)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build releases request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list releases %s/%s: %w", owner, repo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("github releases %s/%s: HTTP %d: %s", owner, repo, resp.StatusCode, string(body))
	}

	var releases []Release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, fmt.Errorf("parse releases %s/%s: %w", owner, repo, err)
	}

	sort.SliceStable(releases, func(i, j int) bool {
		if !releases[i].PublishedAt.Equal(releases[j].PublishedAt) {
			return releases[i].PublishedAt.After(releases[j].PublishedAt)
		}
		return releases[i].TagName > releases[j].TagName
	})
	if len(releases) > n {
		releases = releases[:n]
	}
	return releases, nil
}

// FindAsset returns the Asset named exactly assetName within rel, if present.
func (rel Release) FindAsset(assetName string) (Asset, bool) {
	for _, a := range rel.Assets {
		if a.Name == assetName {
			return a, true
		}
	}
	return Asset{}, false
}
