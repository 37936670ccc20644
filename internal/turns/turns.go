// Package turns encodes and decodes conversation turns to and from the
// fenced marker format embedded in a chat document.
//
// A marker looks like this:
//
//	```turn
//	role: assistant
//	model: openai/gpt-4o
//	temp: 0.7
//	```
//
// The text strictly between the end of one marker and the start of the
// next marker is that turn's body. Text before the first marker is not
// part of any turn.
package turns

import (
	"fmt"
	"strings"

	"github.com/youruser/chatdoc/internal/models"
	"gopkg.in/yaml.v3"
)

// FenceTag is the reserved info-string which opens a marker. It is an
// internal constant, end users never type it out themselves.
const FenceTag = "turn"

const (
	fenceOpen  = "```" + FenceTag
	fenceClose = "```"
)

type metadata struct {
	Role  string   `yaml:"role"`
	Model string   `yaml:"model"`
	Temp  *float64 `yaml:"temp"`
}

// marker is one matched fence block. Indices are line numbers, inclusive
// of both fence lines.
type marker struct {
	open  int
	close int
	meta  metadata
}

// scanMarkers finds every well-formed marker in document order. An
// opening fence with no closing fence before end of document is not a
// marker at all, the surrounding text stays part of the previous body.
func scanMarkers(lines []string) []marker {
	var found []marker
	for i := 0; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != fenceOpen {
			continue
		}
		closeAt := -1
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == fenceClose {
				closeAt = j
				break
			}
		}
		if closeAt == -1 {
			continue
		}
		found = append(found, marker{
			open:  i,
			close: closeAt,
			meta:  parseMetadata(lines[i+1 : closeAt]),
		})
		i = closeAt
	}
	return found
}

// parseMetadata is lenient: anything yaml refuses to read is treated as
// an empty metadata object, the block then delimits bodies but yields
// no turn.
func parseMetadata(lines []string) metadata {
	var meta metadata
	err := yaml.Unmarshal([]byte(strings.Join(lines, "\n")), &meta)
	if err != nil {
		return metadata{}
	}
	return meta
}

// ImageExtractor resolves inline image references in a turn body. See
// the images package for the canonical implementation.
type ImageExtractor func(body string) []models.Image

// Decode recovers the ordered turn list from a document. Markers without
// a role yield no turn, and a turn is only emitted when it has non-empty
// trimmed content or at least one image attachment. The trailing
// "awaiting user input" marker therefore never produces a spurious
// empty message.
func Decode(doc string, extract ImageExtractor) []models.Turn {
	lines := strings.Split(doc, "\n")
	markers := scanMarkers(lines)
	var out []models.Turn
	for i, m := range markers {
		bodyEnd := len(lines)
		if i+1 < len(markers) {
			bodyEnd = markers[i+1].open
		}
		body := strings.Join(lines[m.close+1:bodyEnd], "\n")
		content := strings.TrimSpace(body)
		var imgs []models.Image
		if extract != nil {
			imgs = extract(body)
		}
		if m.meta.Role == "" {
			continue
		}
		if content == "" && len(imgs) == 0 {
			continue
		}
		out = append(out, models.Turn{
			Role:        m.meta.Role,
			Content:     content,
			Model:       m.meta.Model,
			Temperature: m.meta.Temp,
			Images:      imgs,
		})
	}
	return out
}

// EncodeMarker produces the exact inverse fragment of Decode's marker
// parsing: blank separator, fence-open, metadata lines, fence-close and
// one blank body line placeholder.
func EncodeMarker(role, model string, temp *float64) string {
	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(fenceOpen)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "role: %v\n", role)
	if model != "" {
		fmt.Fprintf(&sb, "model: %v\n", model)
	}
	if temp != nil {
		fmt.Fprintf(&sb, "temp: %v\n", *temp)
	}
	sb.WriteString(fenceClose)
	sb.WriteString("\n")
	return sb.String()
}

// HasAnyMarker reports whether the document contains at least one
// well-formed marker. Used to gate chat affordances.
func HasAnyMarker(doc string) bool {
	return len(scanMarkers(strings.Split(doc, "\n"))) > 0
}

// TrimAllBodies strips leading and trailing blank lines from every turn
// body. Interior blank lines, all non-blank content, the preamble and
// the document's final-newline state are preserved byte-for-byte, so a
// document with nothing to strip passes through unchanged. The pass is
// idempotent.
func TrimAllBodies(doc string) string {
	trailing := ""
	if strings.HasSuffix(doc, "\n") {
		trailing = "\n"
		doc = strings.TrimSuffix(doc, "\n")
	}
	lines := strings.Split(doc, "\n")
	markers := scanMarkers(lines)
	if len(markers) == 0 {
		return doc + trailing
	}

	var out []string
	out = append(out, lines[:markers[0].open]...)
	for i, m := range markers {
		out = append(out, lines[m.open:m.close+1]...)
		bodyEnd := len(lines)
		if i+1 < len(markers) {
			bodyEnd = markers[i+1].open
		}
		out = append(out, trimBlankLines(lines[m.close+1:bodyEnd])...)
	}
	return strings.Join(out, "\n") + trailing
}

func trimBlankLines(lines []string) []string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}
