package remote

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter is the YAML header optionally present at the top of
// markdown resources.
type Frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version,omitempty"`
	Author      string `yaml:"author,omitempty"`
}

// ParseFrontmatter extracts the YAML frontmatter from content, returning
// the parsed header and the body. Content without a frontmatter block is
// returned unchanged with an empty header; a malformed block is treated
// the same way rather than failing the install.
func ParseFrontmatter(content []byte) (Frontmatter, string) {
	text := string(content)
	var fm Frontmatter

	if !strings.HasPrefix(text, "---") {
		return fm, text
	}

	rest := text[3:]
	idx := strings.Index(rest, "\n---")
	if idx == -1 {
		return fm, text
	}

	yamlContent := rest[:idx]
	body := strings.TrimPrefix(rest[idx+4:], "\n")

	if err := yaml.Unmarshal([]byte(yamlContent), &fm); err != nil {
		return Frontmatter{}, text
	}
	return fm, body
}

// MetadataFrom flattens a frontmatter header into the open key/value
// metadata map recorded on a Resource. Empty fields are omitted.
func MetadataFrom(fm Frontmatter) map[string]string {
	md := make(map[string]string)
	if fm.Description != "" {
		md["description"] = fm.Description
	}
	if fm.Author != "" {
		md["author"] = fm.Author
	}
	if len(md) == 0 {
		return nil
	}
	return md
}
