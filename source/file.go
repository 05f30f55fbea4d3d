package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/toolgate/backend"
)

// document is the top level of a descriptor file.
type document struct {
	Backends *[]record `json:"backends" yaml:"backends"`
}

// File reads descriptors from a file on every call, so edits are picked up
// without a restart.
//
// Files ending in .json or .jsonc are parsed as JSON with comments and
// trailing commas allowed; anything else is parsed as YAML. The document
// must have a top-level "backends" list. A missing file yields no
// descriptors.
type File struct {
	path string
}

var _ backend.Source = (*File)(nil)

// NewFile creates a file source.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the file path.
func (f *File) Path() string { return f.path }

// ListDescriptors reads and validates the file.
func (f *File) ListDescriptors(ctx context.Context) ([]backend.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []backend.Descriptor{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return Parse(data, filepath.Ext(f.path))
}

// Parse decodes a descriptor document. ext selects the format as for File.
func Parse(data []byte, ext string) ([]backend.Descriptor, error) {
	var doc document
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
			return nil, &backend.ConfigError{Message: "parse json", Err: err}
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &backend.ConfigError{Message: "parse yaml", Err: err}
		}
	}
	if doc.Backends == nil {
		return nil, &backend.ConfigError{Field: "backends", Message: "list is missing"}
	}

	out := make([]backend.Descriptor, 0, len(*doc.Backends))
	for i, r := range *doc.Backends {
		d, err := r.descriptor()
		if err != nil {
			return nil, fmt.Errorf("backends[%d]: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}
