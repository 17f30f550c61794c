// Package remote fetches resource content and version identifiers from a
// remote GitHub repository, tolerating transient failures and respecting
// rate limits.
//
// Fetches are two-tier: the unauthenticated raw-content endpoint is tried
// first (cheap, no quota, no remote version id beyond a computed content
// hash), with the authenticated contents API as fallback (base64 envelope
// plus a remote-assigned SHA).
package remote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strconv"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"github.com/google/go-github/v67/github"

	"github.com/kennyg/scribe/internal/ghclient"
	"github.com/kennyg/scribe/internal/resource"
)

const (
	// DefaultRawBaseURL serves raw file bytes without authentication or
	// rate limiting.
	DefaultRawBaseURL = "https://raw.githubusercontent.com"

	// DefaultRef is used when the caller supplies no ref.
	DefaultRef = "main"

	// DefaultMaxRetries bounds retries per request.
	DefaultMaxRetries = 3

	// DefaultRequestTimeout applies per HTTP request.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultLowQuotaThreshold is the remaining-quota low-water mark
	// below which a warning is surfaced.
	DefaultLowQuotaThreshold = 10

	// rateLimitBuffer is added to a rate-limit reset time before retrying.
	rateLimitBuffer = 2 * time.Second
)

// Options configures a Client.
type Options struct {
	Owner    string
	Repo     string
	BasePath string // optional path prefix within the repo

	RawBaseURL        string
	MaxRetries        int
	BackoffBase       time.Duration
	BackoffMax        time.Duration
	RequestTimeout    time.Duration
	LowQuotaThreshold int
}

func (o *Options) applyDefaults() {
	if o.RawBaseURL == "" {
		o.RawBaseURL = DefaultRawBaseURL
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = DefaultBackoffBase
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = DefaultBackoffMax
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.LowQuotaThreshold <= 0 {
		o.LowQuotaThreshold = DefaultLowQuotaThreshold
	}
}

// FetchResult is the outcome of a fetch. Found distinguishes the normal
// "resource exists" outcome from the equally normal "resource absent"
// outcome; true failures are reported through the error return instead.
type FetchResult struct {
	Found    bool
	Name     string // resolved filename, including extension
	Content  []byte
	RemoteID string // remote-assigned version id; "" via the raw tier
	Hash     string // sha256 digest of Content, always set when Found
}

// Client fetches resources from one remote repository.
type Client struct {
	opts   Options
	http   *http.Client
	gh     *ghclient.Client
	logger *log.Logger

	// sleep is swapped out in tests so retry schedules run instantly.
	sleep func(ctx context.Context, d time.Duration) error

	warnedQuota bool
}

// NewClient creates a Client. A nil gh falls back to ambient token
// resolution; a nil logger discards output.
func NewClient(opts Options, gh *ghclient.Client, logger *log.Logger) *Client {
	opts.applyDefaults()
	if gh == nil {
		gh = ghclient.New()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{
		opts:   opts,
		http:   &http.Client{Timeout: opts.RequestTimeout},
		gh:     gh,
		logger: logger,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ContentHash computes the content-addressable digest used as the local
// "did this change" signal when no remote version id is available.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// candidateNames returns the filenames to try for a resource, in order.
// A name already carrying an extension is attempted exactly as given;
// otherwise the category's candidate extensions are iterated.
func candidateNames(t resource.Type, name string) []string {
	if path.Ext(name) != "" {
		return []string{name}
	}
	exts := t.CandidateExtensions()
	names := make([]string, 0, len(exts))
	for _, ext := range exts {
		names = append(names, name+ext)
	}
	return names
}

// repoPath builds the in-repo path for a filename within a category.
func (c *Client) repoPath(t resource.Type, filename string) string {
	if c.opts.BasePath != "" {
		return path.Join(c.opts.BasePath, string(t), filename)
	}
	return path.Join(string(t), filename)
}

// Fetch resolves and downloads one resource. A missing resource yields
// (FetchResult{Found: false}, nil); only exhausted retries or
// non-retryable failures yield an error.
func (c *Client) Fetch(ctx context.Context, t resource.Type, name, ref string) (FetchResult, error) {
	if !t.Valid() {
		return FetchResult{}, fmt.Errorf("%w: %q", resource.ErrInvalidType, t)
	}
	if ref == "" {
		ref = DefaultRef
	}

	var lastErr error
	for _, filename := range candidateNames(t, name) {
		repoPath := c.repoPath(t, filename)

		content, status, err := c.fetchRaw(ctx, ref, repoPath)
		switch {
		case err == nil && status == http.StatusOK:
			return FetchResult{
				Found:   true,
				Name:    filename,
				Content: content,
				Hash:    ContentHash(content),
			}, nil
		case err == nil && status == http.StatusNotFound:
			// Authoritative absence on this path; no API call needed.
			continue
		}

		// Raw tier failed for a reason other than absence; fall back to
		// the authenticated API for this path.
		c.logger.Debug("raw fetch failed, falling back to API", "path", repoPath, "cause", err)
		fc, apiErr := c.fetchAPI(ctx, ref, repoPath)
		if apiErr != nil {
			if isNotFound(apiErr) {
				continue
			}
			lastErr = apiErr
			continue
		}
		return FetchResult{
			Found:    true,
			Name:     filename,
			Content:  fc.Content,
			RemoteID: fc.SHA,
			Hash:     ContentHash(fc.Content),
		}, nil
	}

	if lastErr != nil {
		return FetchResult{}, fmt.Errorf("fetching %s/%s: %w", t, name, lastErr)
	}
	return FetchResult{Found: false}, nil
}

// fetchRaw downloads one path through the raw-content endpoint with
// retry/backoff. It returns the terminal HTTP status when the request
// itself succeeded (200 or 404); any other outcome is an error.
func (c *Client) fetchRaw(ctx context.Context, ref, repoPath string) ([]byte, int, error) {
	url := fmt.Sprintf("%s/%s/%s/%s/%s", c.opts.RawBaseURL, c.opts.Owner, c.opts.Repo, ref, repoPath)

	var lastErr error
	waited := false
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		// Exactly one wait per retry: a reset-based wait in the previous
		// iteration replaces this attempt's backoff.
		if attempt > 0 && !waited {
			if err := c.sleep(ctx, Backoff(attempt-1, c.opts.BackoffBase, c.opts.BackoffMax)); err != nil {
				return nil, 0, err
			}
		}
		waited = false

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, 0, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			// Timeouts and connection failures are retryable.
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				lastErr = readErr
				continue
			}
			return body, http.StatusOK, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, http.StatusNotFound, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited: status 429")
			if wait, ok := retryAfter(resp); ok {
				if err := c.sleepBounded(ctx, wait, attempt); err != nil {
					return nil, 0, err
				}
				waited = true
			}
			continue
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			continue
		default:
			// Non-retryable client error: terminal for this path.
			return nil, resp.StatusCode, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
		}
	}
	return nil, 0, fmt.Errorf("raw fetch exhausted %d retries: %w", c.opts.MaxRetries, lastErr)
}

// fetchAPI downloads one path through the contents API with retry,
// rate-limit waits, and quota monitoring.
func (c *Client) fetchAPI(ctx context.Context, ref, repoPath string) (*ghclient.FileContent, error) {
	var fc *ghclient.FileContent
	err := c.withAPIRetry(ctx, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		fc, resp, err = c.gh.GetContents(ctx, c.opts.Owner, c.opts.Repo, repoPath, ref)
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	return fc, nil
}

// withAPIRetry runs op under the shared retry/backoff and rate-limit
// policy, and surfaces a low-quota warning when the remaining allowance
// drops below the configured low-water mark.
func (c *Client) withAPIRetry(ctx context.Context, op func() (*github.Response, error)) error {
	var lastErr error
	waited := false
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		// A reset-based wait replaces the backoff for the retry it precedes.
		if attempt > 0 && !waited {
			if err := c.sleep(ctx, Backoff(attempt-1, c.opts.BackoffBase, c.opts.BackoffMax)); err != nil {
				return err
			}
		}
		waited = false

		resp, err := op()
		if resp != nil {
			c.checkQuota(resp.Rate)
		}
		if err == nil {
			return nil
		}
		lastErr = err

		var rateErr *github.RateLimitError
		var abuseErr *github.AbuseRateLimitError
		switch {
		case errors.As(err, &rateErr):
			wait := time.Until(rateErr.Rate.Reset.Time) + rateLimitBuffer
			if sleepErr := c.sleepBounded(ctx, wait, attempt); sleepErr != nil {
				return sleepErr
			}
			waited = true
		case errors.As(err, &abuseErr):
			wait := rateLimitBuffer
			if abuseErr.RetryAfter != nil {
				wait = *abuseErr.RetryAfter
			}
			if sleepErr := c.sleepBounded(ctx, wait, attempt); sleepErr != nil {
				return sleepErr
			}
			waited = true
		case isNotFound(err):
			return err
		case isRetryable(err):
			// 5xx or transport failure; loop takes the backoff path.
		default:
			// Non-retryable client error.
			return err
		}
	}
	return fmt.Errorf("api request exhausted %d retries: %w", c.opts.MaxRetries, lastErr)
}

// sleepBounded sleeps for a rate-limit wait, capped by the remaining
// retry budget so a distant reset cannot stall the caller indefinitely.
func (c *Client) sleepBounded(ctx context.Context, wait time.Duration, attempt int) error {
	remaining := c.opts.MaxRetries - attempt
	if remaining < 1 {
		remaining = 1
	}
	budget := time.Duration(remaining) * c.opts.BackoffMax
	if wait > budget {
		wait = budget
	}
	if wait < MinBackoff {
		wait = MinBackoff
	}
	return c.sleep(ctx, wait)
}

// checkQuota warns (once) when the remaining API quota is low. Running
// out is not an error; supplying a token raises the ceiling.
func (c *Client) checkQuota(rate github.Rate) {
	if rate.Limit == 0 || c.warnedQuota {
		return
	}
	if rate.Remaining < c.opts.LowQuotaThreshold {
		c.warnedQuota = true
		c.logger.Warn("remote API quota is low; set GITHUB_TOKEN to raise the limit",
			"remaining", rate.Remaining, "limit", rate.Limit, "reset", rate.Reset.Time)
	}
}

// List returns the resource filenames (including extensions) present
// remotely for a category. A missing remote directory yields an empty
// list, not an error.
func (c *Client) List(ctx context.Context, t resource.Type, ref string) ([]string, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", resource.ErrInvalidType, t)
	}
	if ref == "" {
		ref = DefaultRef
	}

	dir := string(t)
	if c.opts.BasePath != "" {
		dir = path.Join(c.opts.BasePath, dir)
	}

	var entries []*github.RepositoryContent
	err := c.withAPIRetry(ctx, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		entries, resp, err = c.gh.ListContents(ctx, c.opts.Owner, c.opts.Repo, dir, ref)
		return resp, err
	})
	if err != nil {
		if isNotFound(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("listing %s: %w", t, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.GetType() == "file" {
			names = append(names, e.GetName())
		}
	}
	sort.Strings(names)
	return names, nil
}

// LatestRelease returns the most recent published version tag. The second
// return value is false when the repository has no releases; callers
// typically fall back to the default branch.
func (c *Client) LatestRelease(ctx context.Context) (string, bool, error) {
	var release *github.RepositoryRelease
	err := c.withAPIRetry(ctx, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		release, resp, err = c.gh.LatestRelease(ctx, c.opts.Owner, c.opts.Repo)
		return resp, err
	})
	if err == nil {
		return release.GetTagName(), true, nil
	}
	if !isNotFound(err) {
		return "", false, fmt.Errorf("fetching latest release: %w", err)
	}

	// No release marked "latest"; pick the highest semver tag among the
	// published releases, if any.
	var releases []*github.RepositoryRelease
	err = c.withAPIRetry(ctx, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		releases, resp, err = c.gh.ListReleases(ctx, c.opts.Owner, c.opts.Repo)
		return resp, err
	})
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("listing releases: %w", err)
	}

	var bestTag string
	var best *semver.Version
	for _, r := range releases {
		v, parseErr := semver.NewVersion(r.GetTagName())
		if parseErr != nil {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestTag = r.GetTagName()
		}
	}
	if bestTag == "" {
		return "", false, nil
	}
	return bestTag, true, nil
}

// retryAfter reads a Retry-After header expressed in seconds.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs)*time.Second + rateLimitBuffer, true
}

// isNotFound reports whether err is a 404 from the API.
func isNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}

// isRetryable reports whether err is a server error or transport failure.
func isRetryable(err error) bool {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode >= 500
	}
	// Anything that is not a structured API error is treated as a
	// transport failure (timeout, connection reset).
	return true
}
