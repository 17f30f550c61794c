// Package installer writes and removes resource files under the resource
// root and keeps the manifest in sync. It is the only component that
// creates or deletes files in the resource store, and the only one that
// decides the on-disk filename for a resource.
package installer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/kennyg/scribe/internal/manifest"
	"github.com/kennyg/scribe/internal/paths"
	"github.com/kennyg/scribe/internal/resource"
	"github.com/kennyg/scribe/internal/transaction"
)

// ErrInvalidArgument is returned when Install is given both or neither of
// content and a source path.
var ErrInvalidArgument = errors.New("exactly one of content or source path must be supplied")

// toolPerm is the minimum permission ensured on installed tool files.
const toolPerm = os.FileMode(0o700)

// Options carries the optional inputs to Install. Exactly one of Content
// and SourcePath must be set.
type Options struct {
	Content    []byte
	SourcePath string
	Version    string
	RemoteID   string
	Ref        string
	Source     string // origin tag, e.g. "local" or "remote"
	Metadata   map[string]string
}

// Installer performs install/remove operations against one resource store.
type Installer struct {
	resolver *paths.Resolver
	store    *manifest.Store
	logger   *log.Logger
}

// New creates an Installer. A nil logger discards output.
func New(resolver *paths.Resolver, store *manifest.Store, logger *log.Logger) *Installer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Installer{resolver: resolver, store: store, logger: logger}
}

// DefaultExtension returns the extension given to files of a category
// whose name carries none.
func DefaultExtension(t resource.Type) string {
	return t.DefaultExtension()
}

// TargetPath resolves the on-disk location for a resource: the name
// unchanged when it already carries an extension, otherwise the name plus
// the category's default extension, under the category's directory.
func (i *Installer) TargetPath(t resource.Type, name string) (string, error) {
	dir, err := i.resolver.TargetDir(t)
	if err != nil {
		return "", err
	}
	filename := name
	if filepath.Ext(filename) == "" {
		filename += t.DefaultExtension()
	}
	return filepath.Join(dir, filename), nil
}

// Install writes the resource file and registers it in the manifest,
// replacing any prior entry for the same (type, name). The whole sequence
// runs under a transaction; on any failure the file and manifest are
// restored and false is returned, with the cause logged, so bulk
// operations can continue with their remaining items.
func (i *Installer) Install(t resource.Type, name string, opts Options) bool {
	if (opts.Content == nil) == (opts.SourcePath == "") {
		i.logger.Error("install rejected", "type", t, "name", name, "cause", ErrInvalidArgument)
		return false
	}

	target, err := i.TargetPath(t, name)
	if err != nil {
		i.logger.Error("install failed", "type", t, "name", name, "cause", err)
		return false
	}

	err = transaction.Run(i.store, i.logger, func(tx *transaction.Transaction) error {
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating target directory: %w", err)
		}

		if _, statErr := os.Stat(target); statErr == nil {
			if err := tx.TrackModify(target); err != nil {
				return err
			}
		} else {
			if err := tx.TrackCreate(target); err != nil {
				return err
			}
		}

		if opts.Content != nil {
			if err := os.WriteFile(target, opts.Content, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", target, err)
			}
		} else {
			if err := copyPreserving(opts.SourcePath, target); err != nil {
				return fmt.Errorf("copying %s: %w", opts.SourcePath, err)
			}
		}

		// Tool files must be executable by their owner.
		if t == resource.TypeTool {
			if err := ensureMode(target, toolPerm); err != nil {
				return fmt.Errorf("setting tool permissions: %w", err)
			}
		}

		if err := tx.TrackManifestUpdate(); err != nil {
			return err
		}

		res := resource.New(t, name)
		res.Path = target
		res.RemoteID = opts.RemoteID
		res.Ref = opts.Ref
		res.Metadata = opts.Metadata
		if opts.Version != "" {
			res.Version = opts.Version
		}
		if opts.Source != "" {
			res.Source = opts.Source
		}
		return i.store.AddResource(res)
	})
	if err != nil {
		i.logger.Error("install failed", "type", t, "name", name, "cause", err)
		i.recordFailure(t, name, manifest.OpInstall, err)
		return false
	}

	i.logger.Debug("installed", "type", t, "name", name, "path", target)
	return true
}

// Remove deletes the resource file if present and clears the manifest
// entry regardless, so a missing file cannot leave a stuck ghost entry.
func (i *Installer) Remove(t resource.Type, name string) bool {
	target, err := i.targetForRemoval(t, name)
	if err != nil {
		i.logger.Error("remove failed", "type", t, "name", name, "cause", err)
		return false
	}

	err = transaction.Run(i.store, i.logger, func(tx *transaction.Transaction) error {
		if _, statErr := os.Stat(target); statErr == nil {
			if err := tx.TrackDelete(target); err != nil {
				return err
			}
			if err := os.Remove(target); err != nil {
				return fmt.Errorf("removing %s: %w", target, err)
			}
		}

		if err := tx.TrackManifestUpdate(); err != nil {
			return err
		}
		_, err := i.store.RemoveResource(t, name)
		return err
	})
	if err != nil {
		i.logger.Error("remove failed", "type", t, "name", name, "cause", err)
		i.recordFailure(t, name, manifest.OpRemove, err)
		return false
	}

	i.logger.Debug("removed", "type", t, "name", name, "path", target)
	return true
}

// recordFailure notes an aborted operation in the manifest history. Best
// effort: the operation already failed and was rolled back, so a history
// write failure is only logged.
func (i *Installer) recordFailure(t resource.Type, name, operation string, cause error) {
	if err := i.store.RecordFailure(resource.New(t, name), operation, cause); err != nil {
		i.logger.Warn("failed to record operation failure", "type", t, "name", name, "cause", err)
	}
}

// targetForRemoval prefers the path recorded in the manifest, falling
// back to the computed target for entries installed before paths were
// recorded.
func (i *Installer) targetForRemoval(t resource.Type, name string) (string, error) {
	res, err := i.store.GetResource(t, name)
	if err == nil && res != nil && res.Path != "" {
		return res.Path, nil
	}
	return i.TargetPath(t, name)
}

// copyPreserving copies src to dst, carrying over the file mode and
// modification time.
func copyPreserving(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// ensureMode ORs perm into the file's current permission bits.
func ensureMode(path string, perm os.FileMode) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.Chmod(path, info.Mode().Perm()|perm)
}
