package model

import (
	"fmt"
	"os"

	"github.com/Faultbox/mhx2/pkg/formats"
)

// Load parses an MHX2 document and builds it. Warnings are returned on
// success and on failure.
func Load(data []byte, opts *BuildOptions) (*Model, formats.Warnings, error) {
	doc, warnings, err := formats.ParseMHX2(data)
	if err != nil {
		return nil, warnings, err
	}

	m, err := Build(doc, opts, &warnings)
	if err != nil {
		return nil, warnings, err
	}
	return m, warnings, nil
}

// LoadFile reads and loads an MHX2 file.
func LoadFile(path string, opts *BuildOptions) (*Model, formats.Warnings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading MHX2 file: %w", err)
	}
	return Load(data, opts)
}

// Build builds the skeleton and then every geometry of a parsed document.
// Textures loaded before a failure are released.
func Build(doc *formats.MHX2, opts *BuildOptions, warnings *formats.Warnings) (*Model, error) {
	if opts == nil {
		defaults := DefaultBuildOptions()
		opts = &defaults
	}
	if warnings == nil {
		warnings = &formats.Warnings{}
	}

	skel, err := BuildSkeleton(&doc.Skeleton, warnings)
	if err != nil {
		return nil, fmt.Errorf("building skeleton: %w", err)
	}

	m := &Model{
		Skeleton:  skel,
		Materials: append([]formats.MHX2Material(nil), doc.Materials...),
	}
	for i := range doc.Geometries {
		if err := BuildGeometry(doc, &doc.Geometries[i], m, opts, warnings); err != nil {
			m.Release()
			return nil, fmt.Errorf("building geometry %d: %w", i, err)
		}
	}
	return m, nil
}

// Loader keeps the most recently loaded model and its warnings.
type Loader struct {
	Options BuildOptions

	model    *Model
	warnings formats.Warnings
}

// NewLoader creates a loader with opts, or the defaults when opts is nil.
func NewLoader(opts *BuildOptions) *Loader {
	l := &Loader{Options: DefaultBuildOptions()}
	if opts != nil {
		l.Options = *opts
	}
	return l
}

// Open loads the file at path, replacing the previous model.
func (l *Loader) Open(path string) error {
	l.Close()
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading MHX2 file: %w", err)
	}
	return l.read(data)
}

// Read loads an in-memory document, replacing the previous model.
func (l *Loader) Read(data []byte) error {
	l.Close()
	return l.read(data)
}

// read collects the warnings of data into the loader's log, reusing its
// storage from the previous load.
func (l *Loader) read(data []byte) error {
	l.warnings.Reset()
	doc, warnings, err := formats.ParseMHX2(data)
	l.warnings = append(l.warnings, warnings...)
	if err != nil {
		return err
	}
	m, err := Build(doc, &l.Options, &l.warnings)
	if err != nil {
		return err
	}
	l.model = m
	return nil
}

// Model returns the loaded model, or nil after a failure.
func (l *Loader) Model() *Model {
	return l.model
}

// Warnings returns the warnings of the last load. The next load reuses
// the returned slice's storage.
func (l *Loader) Warnings() formats.Warnings {
	return l.warnings
}

// Close releases the current model and clears the warnings.
func (l *Loader) Close() error {
	var err error
	if l.model != nil {
		err = l.model.Release()
		l.model = nil
	}
	l.warnings.Reset()
	return err
}
