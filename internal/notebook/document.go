package notebook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/youruser/chatdoc/internal/turns"
)

// Document is the mutable text surface a chat lives in. Implementations
// append at the running end, never rewrite earlier content mid-stream.
type Document interface {
	ID() string
	Name() string
	Read() (string, error)
	Append(s string) error
	Rename(newName string) error
}

// FileDocument is a Document backed by a markdown file on disk.
type FileDocument struct {
	Path string
}

func (f *FileDocument) ID() string {
	return f.Path
}

// Name is the file's base name without the markdown extension.
func (f *FileDocument) Name() string {
	return strings.TrimSuffix(filepath.Base(f.Path), ".md")
}

func (f *FileDocument) Read() (string, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return string(b), nil
}

func (f *FileDocument) Append(s string) error {
	file, err := os.OpenFile(f.Path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer file.Close()
	if _, err := file.WriteString(s); err != nil {
		return fmt.Errorf("failed to append to document: %w", err)
	}
	return nil
}

// Rename moves the file to newName within the same directory. It fails
// with os.ErrExist when a file of that name is already there.
func (f *FileDocument) Rename(newName string) error {
	newPath := filepath.Join(filepath.Dir(f.Path), newName+".md")
	if _, err := os.Stat(newPath); err == nil {
		return fmt.Errorf("'%v' is taken: %w", newName, os.ErrExist)
	}
	if err := os.Rename(f.Path, newPath); err != nil {
		return fmt.Errorf("failed to rename document: %w", err)
	}
	f.Path = newPath
	return nil
}

// NewDocument creates a fresh chat file named after today's date, with
// an ordinal suffix when the date is taken, and seeds it with the chat
// frontmatter and an empty user turn.
func NewDocument(dir string) (*FileDocument, error) {
	base := fmt.Sprintf("Chat - %v", time.Now().Format("2006-01-02"))
	name := base
	for i := 2; ; i++ {
		path := filepath.Join(dir, name+".md")
		_, err := os.Stat(path)
		if os.IsNotExist(err) {
			content := "---\nchat: true\n---\n" + turns.EncodeMarker("user", "", nil)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return nil, fmt.Errorf("failed to create document: %w", err)
			}
			return &FileDocument{Path: path}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stat '%v': %w", path, err)
		}
		name = fmt.Sprintf("%v %v", base, i)
	}
}
