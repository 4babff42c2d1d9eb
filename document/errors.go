package document

import (
	"errors"
	"fmt"

	"github.com/digitorus/pdfstamp/internal/incremental"
)

var (
	// ErrUnsupportedFormat is returned for files other than PDF, PNG and
	// JPEG.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEncrypted is returned for encrypted PDF files.
	ErrEncrypted = incremental.ErrEncrypted

	// ErrNoDocument is returned when rendering without a loaded document.
	ErrNoDocument = errors.New("no document loaded")

	errEmptySurface = errors.New("rasterizer returned an empty surface")
)

// LoadError reports a file that could not be loaded.
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("failed to load document: %v", e.Err)
	}
	return fmt.Sprintf("failed to load %s: %v", e.Name, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RenderError reports a page that could not be rasterized.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render page %d: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
