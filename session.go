// Package pdfstamp overlays signatures, initials, text, dates, checkboxes
// and images onto PDF documents and raster images, and bakes them into an
// exported file.
//
// A Session ties the pieces together: the document renderer that owns the
// page geometry and surface, the interaction editor that owns the element
// list, the export engine and the external collaborators.
//
// Basic usage:
//
//	s := pdfstamp.New(pdfstamp.WithSaver(collab.DirSaver{Dir: "out"}))
//	if err := s.Open(ctx, "contract.pdf", data); err != nil {
//	    log.Fatal(err)
//	}
//
//	ed := s.Editor()
//	ed.ActivateTool(element.Checkbox)
//	ed.Place(geometry.Point{X: 300, Y: 300})
//
//	res, err := s.Export(ctx)
package pdfstamp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/digitorus/pdfstamp/collab"
	"github.com/digitorus/pdfstamp/document"
	"github.com/digitorus/pdfstamp/export"
	"github.com/digitorus/pdfstamp/fonts"
	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/interaction"
	"github.com/digitorus/pdfstamp/seal"
)

// State is the lifecycle state of a Session.
type State int

const (
	// Empty: no document.
	Empty State = iota
	// Loaded: a document and its geometry are available.
	Loaded
	// Editing: elements have been placed or changed.
	Editing
	// Exporting: an export holds the session.
	Exporting
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loaded:
		return "loaded"
	case Editing:
		return "editing"
	case Exporting:
		return "exporting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// ErrNoDocument is returned by operations that need a loaded document.
	ErrNoDocument = errors.New("no document loaded")
	// ErrWrongState is returned when an operation does not apply to the
	// current state, e.g. opening a file during an export.
	ErrWrongState = errors.New("operation not allowed in current state")
	// ErrFileTooLarge is returned for files above the configured limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrNoClaimer is returned by Claim without a claim collaborator.
	ErrNoClaimer = errors.New("claiming documents is not configured")
)

// PersistenceWarning reports that remote persistence failed after the
// artifact was produced and saved locally.
type PersistenceWarning struct {
	Name string
	Err  error
}

func (w *PersistenceWarning) Error() string {
	return fmt.Sprintf("remote copy of %s was not stored: %v", w.Name, w.Err)
}

func (w *PersistenceWarning) Unwrap() error { return w.Err }

// Result is the outcome of a successful export.
type Result struct {
	export.Result

	// Name is the file name of the artifact.
	Name string
	// Path is where the local saver stored the artifact, if configured.
	Path string
	// Sealed reports whether an approval signature was applied.
	Sealed bool
	// Warning is set when remote persistence failed.
	Warning *PersistenceWarning
}

// Session is one editing session. It is safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	logger *slog.Logger

	renderer *document.Renderer
	editor   *interaction.Editor

	rendererOpts []document.Option
	editorOpts   []interaction.Option
	exportOpts   []export.Option
	fonts        map[string]*fonts.Font

	sealer    *seal.Signer
	persister collab.Persister
	claimer   collab.Claimer
	quota     collab.Quota
	saver     collab.Saver
	closers   []func()

	maxFileSize int64

	state State
	doc   *document.Document
}

// New returns an empty session.
func New(opts ...Option) *Session {
	s := &Session{
		fonts: make(map[string]*fonts.Font),
		quota: collab.Unlimited{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.renderer = document.NewRenderer(append([]document.Option{document.WithLogger(s.logger)}, s.rendererOpts...)...)
	s.editor = interaction.New(0, append([]interaction.Option{interaction.WithLogger(s.logger)}, s.editorOpts...)...)
	return s
}

// Close discards the document and releases collaborator resources.
func (s *Session) Close() {
	_ = s.Discard()
	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()
	for _, c := range closers {
		c()
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if st == Loaded && (s.editor.CanUndo() || s.editor.CanRedo()) {
		return Editing
	}
	return st
}

// Editor returns the interaction editor driving the element list.
func (s *Session) Editor() *interaction.Editor { return s.editor }

// Renderer returns the document renderer.
func (s *Session) Renderer() *document.Renderer { return s.renderer }

// Document returns the loaded document, nil when empty.
func (s *Session) Document() *document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Open loads a file. The format is checked first, then the usage quota;
// a refused file leaves the session unchanged.
func (s *Session) Open(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	if s.state == Exporting {
		s.mu.Unlock()
		return ErrWrongState
	}
	s.mu.Unlock()

	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return &document.LoadError{Name: name, Err: fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, len(data), s.maxFileSize)}
	}
	if _, err := document.Detect(data); err != nil {
		return &document.LoadError{Name: name, Err: err}
	}

	remaining, err := s.quota.Remaining(ctx)
	if err != nil {
		return fmt.Errorf("check usage limit: %w", err)
	}
	if remaining <= 0 {
		s.logger.Info("file refused, usage limit reached", slog.String("name", name))
		return collab.ErrQuotaExceeded
	}

	doc, err := document.Load(name, data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Exporting {
		return ErrWrongState
	}
	s.renderer.Open(doc)
	s.editor.Reset(doc.NumPages())
	s.doc = doc
	s.state = Loaded
	s.logger.Info("document loaded",
		slog.String("name", name), slog.String("mime", doc.MIME), slog.Int("pages", doc.NumPages()))
	return nil
}

// Claim loads the document stored under a reference code as if it had
// been uploaded.
func (s *Session) Claim(ctx context.Context, code string) error {
	if s.claimer == nil {
		return ErrNoClaimer
	}
	if err := collab.ValidateCode(code); err != nil {
		return err
	}
	a, err := s.claimer.Claim(ctx, code)
	if err != nil {
		return err
	}
	name := a.Name
	if name == "" {
		name = code
	}
	return s.Open(ctx, name, a.Data)
}

// Render rasterizes page n and makes it the current page.
func (s *Session) Render(ctx context.Context, n int) error {
	if s.Document() == nil {
		return ErrNoDocument
	}
	if s.editor.Locked() {
		return interaction.ErrBusy
	}
	prev := s.renderer.Page()
	if _, err := s.renderer.Render(ctx, n); err != nil {
		return err
	}
	if err := s.editor.SetPage(n); err != nil {
		// Keep renderer and editor on the same page.
		if prev > 0 && prev != n {
			if _, rerr := s.renderer.Render(ctx, prev); rerr != nil {
				s.logger.Warn("restoring page failed", slog.Int("page", prev), slog.Any("error", rerr))
			}
		}
		return err
	}
	return nil
}

// SetZoom sets the display zoom of editor and renderer and returns the
// zoom actually applied.
func (s *Session) SetZoom(z float64) float64 {
	z = s.editor.SetZoom(z)
	s.renderer.SetZoom(z)
	return z
}

// SetVisualSize records the measured size of the surface page n is shown
// on; element coordinates are interpreted relative to it.
func (s *Session) SetVisualSize(n int, size geometry.Size) error {
	return s.renderer.SetVisual(n, size)
}

// Geometry returns the page geometry of the loaded document.
func (s *Session) Geometry() document.Geometry { return s.renderer.Geometry() }

// InitialSizes returns the visual size of every page, as used to lay out
// initials on all pages.
func (s *Session) InitialSizes() map[int]geometry.Size { return s.renderer.Geometry().Visual }

// AddFont registers a TrueType font for text elements whose font family
// names family. It applies to subsequent exports.
func (s *Session) AddFont(family string, ttf []byte) error {
	f, err := fonts.Parse(family, ttf)
	if err != nil {
		return fmt.Errorf("add font %s: %w", family, err)
	}
	s.mu.Lock()
	s.fonts[strings.ToLower(family)] = f
	s.mu.Unlock()
	return nil
}

// Discard drops the document and all elements.
func (s *Session) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Exporting {
		return ErrWrongState
	}
	s.renderer.Close()
	s.editor.Reset(0)
	s.doc = nil
	s.state = Empty
	return nil
}

// Export bakes the elements into the document, seals PDFs when a signer
// is configured, saves the artifact locally and hands it to the
// persistence collaborator. The editor is locked for the duration; on
// return the session is back in Editing.
func (s *Session) Export(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return nil, ErrNoDocument
	}
	if s.state == Exporting {
		s.mu.Unlock()
		return nil, ErrWrongState
	}
	doc := s.doc
	s.state = Exporting
	opts := append([]export.Option{export.WithLogger(s.logger)}, s.exportOpts...)
	for family, f := range s.fonts {
		opts = append(opts, export.WithFont(family, f))
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.state == Exporting {
			s.state = Editing
		}
		s.mu.Unlock()
	}()

	els, err := s.editor.Lock()
	if err != nil {
		return nil, err
	}
	defer s.editor.Unlock()

	res, err := export.NewEngine(opts...).Export(ctx, export.Job{
		Document: doc,
		Elements: els,
		Visual:   s.renderer.Geometry().Visual,
	})
	if err != nil {
		return nil, err
	}

	out := &Result{Result: *res, Name: OutputName(doc.Name, res.MIME)}
	if s.sealer != nil && res.MIME == document.MIMEPDF {
		data, err := s.sealer.Seal(ctx, res.Data)
		if err != nil {
			return nil, &export.Error{Op: "seal", Err: err}
		}
		out.Data, out.Sealed = data, true
	}

	a := collab.Artifact{Name: out.Name, MIME: out.MIME, Data: out.Data}
	if s.saver != nil {
		path, err := s.saver.Save(ctx, a)
		if err != nil {
			return nil, &export.Error{Op: "save", Err: err}
		}
		out.Path = path
	}
	if s.persister != nil {
		if err := s.persister.Persist(ctx, a); err != nil {
			out.Warning = &PersistenceWarning{Name: a.Name, Err: err}
			s.logger.Warn("remote persistence failed", slog.String("name", a.Name), slog.Any("error", err))
		}
	}
	return out, nil
}

// OutputName derives the artifact name from the source file name.
func OutputName(source, mime string) string {
	base := filepath.Base(source)
	if base == "." || base == "/" || base == "" {
		base = "document"
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	ext := ".pdf"
	if mime == document.MIMEPNG {
		ext = ".png"
	}
	return base + "-signed" + ext
}
