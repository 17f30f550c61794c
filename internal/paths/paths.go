// Package paths is the single source of truth for where resources and
// metadata live on disk. Resource files (user-visible agents, tools,
// commands, server definitions) and tool-managed metadata (the manifest)
// are kept under two strictly separated roots.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/kennyg/scribe/internal/resource"
)

const (
	// ResourceDirName is the dot-directory under $HOME that holds the
	// resource store.
	ResourceDirName = ".claude"

	// MetadataDirName is the subdirectory of the XDG config home that
	// holds scribe's own state.
	MetadataDirName = "scribe"

	// ManifestFile is the manifest filename under the metadata root.
	ManifestFile = "manifest.json"
)

// Resolver computes and validates canonical locations for the resource
// store and the metadata store. Every path it hands out is re-checked
// against its contracted root; a violation aborts the process because
// proceeding would corrupt the separation between user-managed resource
// files and tool-managed metadata.
type Resolver struct {
	resourceRoot string
	metadataRoot string
}

// New creates a Resolver over explicit roots. The two roots must not
// overlap in either direction.
func New(resourceRoot, metadataRoot string) (*Resolver, error) {
	if resourceRoot == "" || metadataRoot == "" {
		return nil, fmt.Errorf("resource and metadata roots must be non-empty")
	}
	rr, err := filepath.Abs(resourceRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving resource root: %w", err)
	}
	mr, err := filepath.Abs(metadataRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving metadata root: %w", err)
	}
	if contains(rr, mr) || contains(mr, rr) {
		return nil, fmt.Errorf("resource root %s and metadata root %s overlap", rr, mr)
	}
	return &Resolver{resourceRoot: rr, metadataRoot: mr}, nil
}

// Default returns a Resolver over the standard locations: the resource
// store under $HOME/.claude and metadata under the XDG config home.
func Default() (*Resolver, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	return New(
		filepath.Join(home, ResourceDirName),
		filepath.Join(xdg.ConfigHome, MetadataDirName),
	)
}

// ResourceRoot returns the canonical resource-store root.
func (r *Resolver) ResourceRoot() string { return r.resourceRoot }

// MetadataRoot returns the canonical metadata-store root.
func (r *Resolver) MetadataRoot() string { return r.metadataRoot }

// TargetDir returns the subdirectory of the resource root for a category.
func (r *Resolver) TargetDir(t resource.Type) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", resource.ErrInvalidType, t)
	}
	dir := filepath.Join(r.resourceRoot, string(t))
	r.mustBeUnder(r.resourceRoot, dir)
	r.mustNotBeUnder(r.metadataRoot, dir)
	return dir, nil
}

// ManifestPath returns the manifest file location under the metadata root.
func (r *Resolver) ManifestPath() string {
	p := filepath.Join(r.metadataRoot, ManifestFile)
	r.mustBeUnder(r.metadataRoot, p)
	r.mustNotBeUnder(r.resourceRoot, p)
	return p
}

// EnsureDirectories creates the full directory skeleton: the resource
// root, one subdirectory per known category, and the metadata root.
// Idempotent.
func (r *Resolver) EnsureDirectories() error {
	dirs := []string{r.resourceRoot}
	for _, t := range resource.Types() {
		dirs = append(dirs, filepath.Join(r.resourceRoot, string(t)))
	}
	dirs = append(dirs, r.metadataRoot)

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// mustBeUnder aborts if path is not rooted under root. This guards a
// programming invariant, not a runtime condition: a failure means the
// resolver itself would have handed out a location outside its contracted
// tree, and nothing may be written there.
func (r *Resolver) mustBeUnder(root, path string) {
	if !contains(root, path) {
		panic(fmt.Sprintf("paths: invariant violation: %s escapes root %s", path, root))
	}
}

func (r *Resolver) mustNotBeUnder(root, path string) {
	if contains(root, path) {
		panic(fmt.Sprintf("paths: invariant violation: %s is under the wrong root %s", path, root))
	}
}

// contains reports whether path is root itself or nested under it.
func contains(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
