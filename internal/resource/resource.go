// Package resource defines the closed set of resource categories scribe
// manages and the Resource record tracked for each installed item.
package resource

import (
	"fmt"
	"time"
)

// Type is a resource category. The set is closed: every installed item
// belongs to exactly one of the four categories below.
type Type string

const (
	TypeAgent     Type = "agents"
	TypeTool      Type = "tools"
	TypeCommand   Type = "commands"
	TypeMCPServer Type = "mcp-servers"
)

// Types returns all known categories in display order.
func Types() []Type {
	return []Type{TypeAgent, TypeTool, TypeCommand, TypeMCPServer}
}

// ErrInvalidType is returned when a string does not name a known category.
var ErrInvalidType = fmt.Errorf("invalid resource type")

// ParseType converts a user-supplied string into a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q (known: agents, tools, commands, mcp-servers)", ErrInvalidType, s)
	}
	return t, nil
}

// Valid reports whether t is one of the known categories.
func (t Type) Valid() bool {
	switch t {
	case TypeAgent, TypeTool, TypeCommand, TypeMCPServer:
		return true
	}
	return false
}

// DefaultExtension is the extension given to an installed file whose name
// carries none. Documentation-style categories use markdown, structured
// configuration uses JSON, and tools default to their most common script
// form. Unknown types get a generic fallback so a bad value still produces
// a usable filename.
func (t Type) DefaultExtension() string {
	switch t {
	case TypeAgent, TypeCommand:
		return ".md"
	case TypeMCPServer:
		return ".json"
	case TypeTool:
		return ".py"
	}
	return ".txt"
}

// CandidateExtensions is the ordered list of extensions the remote client
// tries when fetching a name that carries no extension.
func (t Type) CandidateExtensions() []string {
	switch t {
	case TypeAgent, TypeCommand:
		return []string{".md"}
	case TypeMCPServer:
		return []string{".json"}
	case TypeTool:
		return []string{".py", ".sh", ".js", ".ts", ".rb"}
	}
	return []string{".txt"}
}

// String implements fmt.Stringer.
func (t Type) String() string { return string(t) }

// DefaultVersion is recorded for resources installed without an explicit
// version.
const DefaultVersion = "1.0.0"

// Resource represents one installed item. At most one Resource exists per
// (Type, Name) pair in the manifest; installing a duplicate replaces the
// prior entry.
type Resource struct {
	Name        string            `json:"name"`
	Type        Type              `json:"type"`
	Version     string            `json:"version"`
	Source      string            `json:"source"`
	InstalledAt time.Time         `json:"installed_at"`
	Path        string            `json:"path,omitempty"`
	RemoteID    string            `json:"remote_id,omitempty"`
	Ref         string            `json:"ref,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// New returns a Resource with defaults applied.
func New(t Type, name string) Resource {
	return Resource{
		Name:        name,
		Type:        t,
		Version:     DefaultVersion,
		Source:      "local",
		InstalledAt: time.Now().UTC(),
	}
}
