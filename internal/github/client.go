package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

const defaultBaseURL = "https://api.github.com"

// Asset is one downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Release is one published release of a repository.
type Release struct {
	TagName     string    `json:"tag_name"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []Asset   `json:"assets"`
}

// Client fetches release information from GitHub.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client. Pass an empty string to use the default
// GitHub API base URL. Pass a custom URL for testing.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListReleases returns the repo's releases, newest first, as the API
// reports them. Drafts are included; callers filter.
func (c *Client) ListReleases(ctx context.Context, repo string) ([]Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases", c.baseURL, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// handled below
	case http.StatusNotFound:
		return nil, fmt.Errorf("repo %q not found on GitHub — check the github_repo field in the catalog", repo)
	case http.StatusForbidden, http.StatusTooManyRequests:
		return nil, fmt.Errorf("GitHub API rate limited for %q — set GITHUB_TOKEN env var to increase limit", repo)
	default:
		return nil, fmt.Errorf("unexpected GitHub API status %d for %q", resp.StatusCode, repo)
	}

	var releases []Release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, fmt.Errorf("decode GitHub response: %w", err)
	}
	return releases, nil
}

// LatestRelease returns the most recent published release: the first
// non-draft entry, skipping prereleases unless allowPrerelease is set.
// ok is false when no release qualifies.
func (c *Client) LatestRelease(ctx context.Context, repo string, allowPrerelease bool) (Release, bool, error) {
	releases, err := c.ListReleases(ctx, repo)
	if err != nil {
		return Release{}, false, err
	}
	for _, r := range releases {
		if r.Draft {
			continue
		}
		if r.Prerelease && !allowPrerelease {
			continue
		}
		return r, true, nil
	}
	return Release{}, false, nil
}
