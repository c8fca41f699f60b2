// Package output renders a finished specification document to files: the
// JSON spec, the Markdown report and the Archon import payload. A run's files
// are written together or not at all.
package output

import (
	"errors"
	"fmt"
	"path/filepath"

	"ideenfinder/pkg/archon"
	"ideenfinder/pkg/config"
	"ideenfinder/pkg/logx"
	"ideenfinder/pkg/spec"
)

// File names inside a run directory.
const (
	JSONFile     = "project-spec.json"
	MarkdownFile = "project-spec.md"
	ArchonFile   = "archon-import.json"
)

// ErrIncompleteDocument is returned for a document missing a section.
var ErrIncompleteDocument = errors.New("document is incomplete")

// File is one rendered output.
type File struct {
	Format string
	Name   string
	Data   []byte
}

// Formatter renders the enabled formats.
type Formatter struct {
	formats []string
	logger  *logx.Logger
}

// NewFormatter creates a formatter for formats. No formats means all three.
func NewFormatter(formats []string) *Formatter {
	if len(formats) == 0 {
		formats = []string{config.FormatJSON, config.FormatMarkdown, config.FormatArchon}
	}
	return &Formatter{formats: formats, logger: logx.NewLogger("output")}
}

// Render renders every enabled format in memory, in configuration order.
func (f *Formatter) Render(doc *spec.Document) ([]File, error) {
	if doc == nil || !doc.Complete() {
		var missing []spec.Label
		if doc != nil {
			missing = doc.Missing()
		}
		return nil, fmt.Errorf("%w: missing %v", ErrIncompleteDocument, missing)
	}

	files := make([]File, 0, len(f.formats))
	for _, format := range f.formats {
		var (
			name string
			data []byte
			err  error
		)
		switch format {
		case config.FormatJSON:
			name = JSONFile
			data, err = RenderJSON(doc)
		case config.FormatMarkdown:
			name = MarkdownFile
			data, err = RenderMarkdown(doc)
		case config.FormatArchon:
			name = ArchonFile
			data, err = marshalIndent(archon.BuildImport(doc))
		default:
			err = fmt.Errorf("unknown output format %q", format)
		}
		if err != nil {
			return nil, err
		}
		files = append(files, File{Format: format, Name: name, Data: data})
	}
	return files, nil
}

// Write renders doc and writes every file into dir atomically. It returns the
// written paths keyed by format.
func (f *Formatter) Write(doc *spec.Document, dir string) (map[string]string, error) {
	files, err := f.Render(doc)
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(dir, files); err != nil {
		return nil, err
	}

	outputs := make(map[string]string, len(files))
	for _, file := range files {
		outputs[file.Format] = filepath.Join(dir, file.Name)
	}
	f.logger.Info("wrote %d files to %s", len(files), dir)
	return outputs, nil
}
