package manifest

import (
	"time"

	"github.com/kennyg/scribe/internal/resource"
)

// SchemaVersion is the manifest document schema version.
const SchemaVersion = "1"

// Manifest is the single persisted state document. It is the only durable
// contract between the core and anything that inspects installed state
// directly.
type Manifest struct {
	Version   string                             `json:"version"`
	Resources map[resource.Type][]resource.Resource `json:"resources"`
	Metadata  Metadata                           `json:"metadata"`
	History   []Record                           `json:"history,omitempty"`
}

// Metadata carries document-level bookkeeping.
type Metadata struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ToolVersion string    `json:"tool_version,omitempty"`
	Project     string    `json:"project,omitempty"`
}

// Operation kinds recorded in the history log.
const (
	OpInstall = "install"
	OpRemove  = "remove"
	OpUpdate  = "update"
)

// Record is one entry in the append-only operation history.
type Record struct {
	Resource  resource.Resource `json:"resource"`
	Operation string            `json:"operation"`
	Timestamp time.Time         `json:"timestamp"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
}

// Default returns a fresh Manifest with all four category buckets present
// (empty) and creation timestamps set.
func Default(toolVersion string) *Manifest {
	now := time.Now().UTC()
	m := &Manifest{
		Version:   SchemaVersion,
		Resources: make(map[resource.Type][]resource.Resource, len(resource.Types())),
		Metadata: Metadata{
			CreatedAt:   now,
			UpdatedAt:   now,
			ToolVersion: toolVersion,
		},
	}
	for _, t := range resource.Types() {
		m.Resources[t] = []resource.Resource{}
	}
	return m
}

// normalize repairs a loaded document so the bucket invariant holds: every
// known category has a bucket, and every entry's Type matches the bucket
// it sits under.
func (m *Manifest) normalize() {
	if m.Resources == nil {
		m.Resources = make(map[resource.Type][]resource.Resource, len(resource.Types()))
	}
	for _, t := range resource.Types() {
		if m.Resources[t] == nil {
			m.Resources[t] = []resource.Resource{}
		}
		bucket := m.Resources[t]
		for i := range bucket {
			bucket[i].Type = t
		}
	}
	if m.Version == "" {
		m.Version = SchemaVersion
	}
}

// Find returns the resource for (t, name), or nil if absent.
func (m *Manifest) Find(t resource.Type, name string) *resource.Resource {
	bucket := m.Resources[t]
	for i := range bucket {
		if bucket[i].Name == name {
			return &bucket[i]
		}
	}
	return nil
}
