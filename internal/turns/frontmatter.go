package turns

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// DocMeta is the recognized subset of a document's YAML frontmatter.
// Model and Temp override the configured defaults for that document.
type DocMeta struct {
	Chat  bool     `yaml:"chat"`
	Model string   `yaml:"model"`
	Temp  *float64 `yaml:"temp"`
}

// Frontmatter parses the leading '---' block of a document. A missing
// or unparsable block yields the zero DocMeta, never an error, the same
// leniency as marker metadata.
func Frontmatter(doc string) DocMeta {
	lines := strings.Split(doc, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return DocMeta{}
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return DocMeta{}
	}
	var meta DocMeta
	err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &meta)
	if err != nil {
		return DocMeta{}
	}
	return meta
}

// IsChatDocument reports whether the frontmatter opts the document into
// chat handling.
func IsChatDocument(doc string) bool {
	return Frontmatter(doc).Chat
}
