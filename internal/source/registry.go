package source

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// Format builds a Source for one input encoding.
type Format interface {
	NewSource(r io.Reader) (Source, error)
	Name() string
}

// CSVFormat reads comma-separated files with a header row.
type CSVFormat struct{}

// Name returns the format name.
func (CSVFormat) Name() string { return "csv" }

// NewSource returns a streaming CSV source.
func (CSVFormat) NewSource(r io.Reader) (Source, error) { return NewCSV(r) }

// Registry holds named input formats.
type Registry struct {
	formats map[string]Format
}

// NewRegistry creates an empty format registry.
func NewRegistry() *Registry {
	return &Registry{formats: make(map[string]Format)}
}

// Register adds a format. Panics on duplicate name.
func (r *Registry) Register(f Format) {
	key := strings.ToLower(f.Name())
	if _, ok := r.formats[key]; ok {
		panic("duplicate input format: " + key)
	}
	r.formats[key] = f
}

// Get returns the format for name, or nil.
func (r *Registry) Get(name string) Format {
	return r.formats[strings.ToLower(name)]
}

// Names returns the registered format names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultRegistry returns a registry with all built-in formats.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(CSVFormat{})
	return r
}

// File is a Source backed by an open file.
type File struct {
	Source
	f *os.File
}

// Close closes the underlying file.
func (f *File) Close() error { return f.f.Close() }

// Open opens path and decodes it with the named format.
func (r *Registry) Open(format, path string) (*File, error) {
	fmtr := r.Get(format)
	if fmtr == nil {
		return nil, fmt.Errorf("unknown input format %q (known: %s)", format, strings.Join(r.Names(), ", "))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	src, err := fmtr.NewSource(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &File{Source: src, f: f}, nil
}
