package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"event-catalog/core/reconcile"
)

// File reads listings from a local JSON or YAML fixture.
type File struct {
	path string
	name string
}

// NewFile creates a file source named after the file.
func NewFile(path string) *File {
	base := filepath.Base(path)
	return &File{path: path, name: strings.TrimSuffix(base, filepath.Ext(base))}
}

// Name returns the file's base name without extension.
func (f *File) Name() string { return f.name }

// Fetch reads and decodes the file.
func (f *File) Fetch(ctx context.Context) ([]reconcile.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Decode(data, f.path, f.name)
}
