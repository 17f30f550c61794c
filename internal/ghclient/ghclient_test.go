package ghclient

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewWithToken(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		client := NewWithToken("")
		if client == nil {
			t.Fatal("NewWithToken() returned nil")
		}
		if client.gh == nil {
			t.Error("client.gh is nil")
		}
		if client.IsAuthenticated() {
			t.Error("expected unauthenticated client for empty token")
		}
	})

	t.Run("with token", func(t *testing.T) {
		client := NewWithToken("test-token")
		if !client.IsAuthenticated() {
			t.Error("expected authenticated client")
		}
	})
}

func TestGetToken(t *testing.T) {
	// Point HOME at an empty dir so a real gh CLI config can't leak in.
	t.Setenv("HOME", t.TempDir())

	t.Run("no token anywhere", func(t *testing.T) {
		t.Setenv("GITHUB_TOKEN", "")
		t.Setenv("GH_TOKEN", "")
		if got := getToken(); got != "" {
			t.Errorf("getToken() = %q, want empty", got)
		}
	})

	t.Run("GITHUB_TOKEN", func(t *testing.T) {
		t.Setenv("GITHUB_TOKEN", "github-token")
		t.Setenv("GH_TOKEN", "")
		if got := getToken(); got != "github-token" {
			t.Errorf("getToken() = %q, want github-token", got)
		}
	})

	t.Run("GH_TOKEN fallback", func(t *testing.T) {
		t.Setenv("GITHUB_TOKEN", "")
		t.Setenv("GH_TOKEN", "gh-token")
		if got := getToken(); got != "gh-token" {
			t.Errorf("getToken() = %q, want gh-token", got)
		}
	})

	t.Run("GITHUB_TOKEN takes precedence", func(t *testing.T) {
		t.Setenv("GITHUB_TOKEN", "github-token")
		t.Setenv("GH_TOKEN", "gh-token")
		if got := getToken(); got != "github-token" {
			t.Errorf("getToken() = %q, want github-token", got)
		}
	})
}

func TestReadGhToken(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "")

	t.Run("missing config", func(t *testing.T) {
		if got := readGhToken(); got != "" {
			t.Errorf("readGhToken() = %q, want empty", got)
		}
	})

	t.Run("hosts.yml token", func(t *testing.T) {
		dir := filepath.Join(home, ".config", "gh")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		hosts := "github.com:\n    oauth_token: hosts-token\n    user: someone\n"
		if err := os.WriteFile(filepath.Join(dir, "hosts.yml"), []byte(hosts), 0o600); err != nil {
			t.Fatal(err)
		}

		if got := readGhToken(); got != "hosts-token" {
			t.Errorf("readGhToken() = %q, want hosts-token", got)
		}
		if got := getToken(); got != "hosts-token" {
			t.Errorf("getToken() = %q, want hosts-token", got)
		}
	})

	t.Run("malformed hosts.yml", func(t *testing.T) {
		dir := filepath.Join(home, ".config", "gh")
		if err := os.WriteFile(filepath.Join(dir, "hosts.yml"), []byte("{nope"), 0o600); err != nil {
			t.Fatal(err)
		}
		if got := readGhToken(); got != "" {
			t.Errorf("readGhToken() = %q, want empty", got)
		}
	})
}

func TestWithBaseURL(t *testing.T) {
	client := NewWithToken("").WithBaseURL("http://127.0.0.1:9999")
	if client.gh.BaseURL.Host != "127.0.0.1:9999" {
		t.Errorf("BaseURL host = %s, want 127.0.0.1:9999", client.gh.BaseURL.Host)
	}
	if client.gh.BaseURL.Path != "/api/v3/" {
		t.Errorf("BaseURL path = %s, want /api/v3/", client.gh.BaseURL.Path)
	}
}
