// Package manifest persists the set of installed resources and a
// human-auditable operation history as a single JSON document under the
// metadata root.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kennyg/scribe/internal/paths"
	"github.com/kennyg/scribe/internal/resource"
)

// Store loads and saves the manifest document. Each mutating operation is
// a whole-document read-modify-write followed by an immediate save; there
// is no batching and no locking, so concurrent writers are last-writer-wins.
type Store struct {
	resolver    *paths.Resolver
	logger      *log.Logger
	toolVersion string
}

// NewStore creates a Store. A nil logger discards output.
func NewStore(resolver *paths.Resolver, logger *log.Logger, toolVersion string) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{resolver: resolver, logger: logger, toolVersion: toolVersion}
}

// Load parses the persisted document. An absent file yields a fresh
// default manifest. A present but unparseable file is renamed to a .bak
// sibling (never deleted, the evidence is kept) and a fresh default is
// returned; the second return value reports that this recovery happened.
func (s *Store) Load() (*Manifest, bool, error) {
	path := s.resolver.ManifestPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(s.toolVersion), false, nil
		}
		return nil, false, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		bak := path + ".bak"
		if renameErr := os.Rename(path, bak); renameErr != nil {
			return nil, false, fmt.Errorf("manifest corrupted and backup failed: %w", errors.Join(err, renameErr))
		}
		s.logger.Warn("manifest corrupted, moved aside and reset", "path", path, "backup", bak, "cause", err)
		return Default(s.toolVersion), true, nil
	}

	m.normalize()
	return &m, false, nil
}

// Save serializes and writes the whole document, creating the metadata
// root if needed.
func (s *Store) Save(m *Manifest) error {
	if err := os.MkdirAll(s.resolver.MetadataRoot(), 0o755); err != nil {
		return fmt.Errorf("creating metadata root: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	if err := os.WriteFile(s.resolver.ManifestPath(), data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// AddResource registers res in the manifest, replacing any existing entry
// with the same (type, name), appends an install record to the history,
// and persists.
func (s *Store) AddResource(res resource.Resource) error {
	if !res.Type.Valid() {
		return fmt.Errorf("%w: %q", resource.ErrInvalidType, res.Type)
	}

	m, _, err := s.Load()
	if err != nil {
		return err
	}

	bucket := m.Resources[res.Type]
	kept := bucket[:0]
	for _, existing := range bucket {
		if existing.Name != res.Name {
			kept = append(kept, existing)
		}
	}
	m.Resources[res.Type] = append(kept, res)

	m.History = append(m.History, Record{
		Resource:  res,
		Operation: OpInstall,
		Timestamp: time.Now().UTC(),
		Success:   true,
	})
	m.Metadata.UpdatedAt = time.Now().UTC()

	return s.Save(m)
}

// RemoveResource filters the (t, name) entry out of the manifest. It
// persists only when something was actually removed, and reports whether
// removal occurred.
func (s *Store) RemoveResource(t resource.Type, name string) (bool, error) {
	m, _, err := s.Load()
	if err != nil {
		return false, err
	}

	bucket := m.Resources[t]
	kept := make([]resource.Resource, 0, len(bucket))
	var removed *resource.Resource
	for _, existing := range bucket {
		if existing.Name == name {
			e := existing
			removed = &e
			continue
		}
		kept = append(kept, existing)
	}
	if removed == nil {
		return false, nil
	}
	m.Resources[t] = kept

	m.History = append(m.History, Record{
		Resource:  *removed,
		Operation: OpRemove,
		Timestamp: time.Now().UTC(),
		Success:   true,
	})
	m.Metadata.UpdatedAt = time.Now().UTC()

	if err := s.Save(m); err != nil {
		return false, err
	}
	return true, nil
}

// RecordFailure appends a failed-operation record to the history without
// touching the installed set, so aborted operations stay auditable.
func (s *Store) RecordFailure(res resource.Resource, operation string, cause error) error {
	m, _, err := s.Load()
	if err != nil {
		return err
	}

	m.History = append(m.History, Record{
		Resource:  res,
		Operation: operation,
		Timestamp: time.Now().UTC(),
		Success:   false,
		Error:     cause.Error(),
	})
	m.Metadata.UpdatedAt = time.Now().UTC()

	return s.Save(m)
}

// GetResource returns the installed resource for (t, name), or nil if it
// is not installed.
func (s *Store) GetResource(t resource.Type, name string) (*resource.Resource, error) {
	m, _, err := s.Load()
	if err != nil {
		return nil, err
	}
	return m.Find(t, name), nil
}

// ListResources returns installed resources for one category.
func (s *Store) ListResources(t resource.Type) ([]resource.Resource, error) {
	m, _, err := s.Load()
	if err != nil {
		return nil, err
	}
	return m.Resources[t], nil
}

// ListAll returns all installed resources in category display order.
func (s *Store) ListAll() ([]resource.Resource, error) {
	m, _, err := s.Load()
	if err != nil {
		return nil, err
	}
	var all []resource.Resource
	for _, t := range resource.Types() {
		all = append(all, m.Resources[t]...)
	}
	return all, nil
}

// ResourceVersion returns the recorded remote version id for (t, name),
// or "" when none is recorded.
func (s *Store) ResourceVersion(t resource.Type, name string) (string, error) {
	res, err := s.GetResource(t, name)
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", nil
	}
	return res.RemoteID, nil
}

// NeedsUpdate reports whether an update should do any work: true when no
// local version id is recorded for the resource, or when the recorded id
// differs from remoteID.
func (s *Store) NeedsUpdate(t resource.Type, name, remoteID string) (bool, error) {
	local, err := s.ResourceVersion(t, name)
	if err != nil {
		return false, err
	}
	return local == "" || local != remoteID, nil
}

// UpdateResourceVersion records a new remote version id (and optionally a
// new ref) for an installed resource, appends an update record, and
// persists. Returns false without touching the document when the resource
// is not installed.
func (s *Store) UpdateResourceVersion(t resource.Type, name, remoteID, ref string) (bool, error) {
	m, _, err := s.Load()
	if err != nil {
		return false, err
	}

	res := m.Find(t, name)
	if res == nil {
		return false, nil
	}
	res.RemoteID = remoteID
	if ref != "" {
		res.Ref = ref
	}

	m.History = append(m.History, Record{
		Resource:  *res,
		Operation: OpUpdate,
		Timestamp: time.Now().UTC(),
		Success:   true,
	})
	m.Metadata.UpdatedAt = time.Now().UTC()

	if err := s.Save(m); err != nil {
		return false, err
	}
	return true, nil
}
