// Package ghclient wraps the authenticated GitHub API tier using go-github.
package ghclient

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/go-github/v67/github"
	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"
)

// Client wraps the go-github client.
type Client struct {
	gh            *github.Client
	authenticated bool
}

// New creates a GitHub API client.
// Token resolution order: GITHUB_TOKEN, GH_TOKEN, gh CLI config, unauthenticated.
// Absence of a token only lowers the rate-limit ceiling, never correctness.
func New() *Client {
	return NewWithToken(getToken())
}

// NewWithToken creates a client with an explicit token ("" for anonymous).
func NewWithToken(token string) *Client {
	var httpClient *http.Client
	authenticated := false

	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
		authenticated = true
	}

	return &Client{
		gh:            github.NewClient(httpClient),
		authenticated: authenticated,
	}
}

// WithBaseURL points the client at a different API host. Used by tests to
// target an httptest server.
func (c *Client) WithBaseURL(baseURL string) *Client {
	gh, err := c.gh.WithEnterpriseURLs(baseURL, baseURL)
	if err == nil {
		c.gh = gh
	}
	return c
}

// IsAuthenticated returns true if the client has a token.
func (c *Client) IsAuthenticated() bool {
	return c.authenticated
}

// FileContent is the decoded result of a contents-API fetch.
type FileContent struct {
	Content []byte
	SHA     string // remote-assigned version id
	Size    int
}

// GetContents fetches a single file through the contents API and decodes
// its base64 envelope. The response's rate information is returned
// alongside so callers can react to a draining quota.
func (c *Client) GetContents(ctx context.Context, owner, repo, path, ref string) (*FileContent, *github.Response, error) {
	opts := &github.RepositoryContentGetOptions{Ref: ref}
	fileContent, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, resp, err
	}
	if fileContent == nil {
		return nil, resp, fmt.Errorf("path %s is a directory, not a file", path)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, resp, fmt.Errorf("decoding content: %w", err)
	}

	return &FileContent{
		Content: []byte(content),
		SHA:     fileContent.GetSHA(),
		Size:    fileContent.GetSize(),
	}, resp, nil
}

// ListContents lists a directory through the contents API.
func (c *Client) ListContents(ctx context.Context, owner, repo, path, ref string) ([]*github.RepositoryContent, *github.Response, error) {
	opts := &github.RepositoryContentGetOptions{Ref: ref}
	_, dirContents, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, resp, err
	}
	return dirContents, resp, nil
}

// LatestRelease returns the most recent published release.
func (c *Client) LatestRelease(ctx context.Context, owner, repo string) (*github.RepositoryRelease, *github.Response, error) {
	return c.gh.Repositories.GetLatestRelease(ctx, owner, repo)
}

// ListReleases lists published releases, newest first per the API.
func (c *Client) ListReleases(ctx context.Context, owner, repo string) ([]*github.RepositoryRelease, *github.Response, error) {
	return c.gh.Repositories.ListReleases(ctx, owner, repo, &github.ListOptions{PerPage: 50})
}

// getToken attempts to get a GitHub token from various sources.
func getToken() string {
	// 1. GITHUB_TOKEN env var
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}

	// 2. GH_TOKEN env var (gh CLI compat)
	if token := os.Getenv("GH_TOKEN"); token != "" {
		return token
	}

	// 3. Try gh CLI config
	if token := readGhToken(); token != "" {
		return token
	}

	// 4. Unauthenticated (60 req/hr)
	return ""
}

// ghHostsConfig represents the gh CLI hosts.yml config.
type ghHostsConfig map[string]struct {
	OAuthToken string `yaml:"oauth_token"`
}

// readGhToken reads the GitHub token from gh CLI config.
func readGhToken() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	hostsPath := filepath.Join(homeDir, ".config", "gh", "hosts.yml")
	if data, err := os.ReadFile(hostsPath); err == nil {
		var hosts ghHostsConfig
		if err := yaml.Unmarshal(data, &hosts); err == nil {
			if host, ok := hosts["github.com"]; ok && host.OAuthToken != "" {
				return host.OAuthToken
			}
		}
	}

	return ""
}
