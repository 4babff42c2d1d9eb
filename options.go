package pdfstamp

import (
	"fmt"
	"log/slog"

	"github.com/digitorus/pdfstamp/collab"
	"github.com/digitorus/pdfstamp/config"
	"github.com/digitorus/pdfstamp/document"
	"github.com/digitorus/pdfstamp/export"
	"github.com/digitorus/pdfstamp/interaction"
	"github.com/digitorus/pdfstamp/seal"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger shared by all components.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithRasterizer sets the PDF page rasterizer.
func WithRasterizer(r document.Rasterizer) Option {
	return func(s *Session) { s.rendererOpts = append(s.rendererOpts, document.WithRasterizer(r)) }
}

// WithEditorOptions passes options to the interaction editor.
func WithEditorOptions(opts ...interaction.Option) Option {
	return func(s *Session) { s.editorOpts = append(s.editorOpts, opts...) }
}

// WithExportOptions passes options to the export engine.
func WithExportOptions(opts ...export.Option) Option {
	return func(s *Session) { s.exportOpts = append(s.exportOpts, opts...) }
}

// WithSeal applies an approval signature to every PDF export.
func WithSeal(signer *seal.Signer) Option {
	return func(s *Session) { s.sealer = signer }
}

func WithPersister(p collab.Persister) Option {
	return func(s *Session) { s.persister = p }
}

func WithClaimer(c collab.Claimer) Option {
	return func(s *Session) { s.claimer = c }
}

// WithQuota sets the usage-limit collaborator. The default is unlimited.
func WithQuota(q collab.Quota) Option {
	return func(s *Session) {
		if q != nil {
			s.quota = q
		}
	}
}

// WithSaver sets where exports are saved locally.
func WithSaver(sv collab.Saver) Option {
	return func(s *Session) { s.saver = sv }
}

// WithMaxFileSize refuses files larger than n bytes; 0 disables the check.
func WithMaxFileSize(n int64) Option {
	return func(s *Session) { s.maxFileSize = n }
}

// FromConfig translates a configuration into session options. When a
// document service is configured, its client serves as persister,
// claimer and quota, and is closed with the session.
func FromConfig(c config.Config, logger *slog.Logger) ([]Option, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r, err := document.NewRasterizer(c.Render.Rasterizer, c.Render.PdftoppmPath, c.Render.Timeout.Duration)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	e := c.Editor
	opts := []Option{
		WithLogger(logger),
		WithRasterizer(r),
		WithMaxFileSize(c.Upload.MaxFileSize),
		WithEditorOptions(
			interaction.WithMinSize(e.MinElementSize),
			interaction.WithZoomLimits(e.MinZoom, e.MaxZoom),
			interaction.WithHistoryLimit(e.HistoryLimit),
			interaction.WithDateFormat(e.DateFormat),
			interaction.WithClickThreshold(e.ClickThreshold),
			interaction.WithStampLimits(e.StampMin, e.StampMax),
		),
		WithExportOptions(
			export.WithSupersample(c.Export.Supersample),
			export.WithCompressLevel(c.Export.CompressLevel),
			export.WithSignerName(c.Export.SignerName),
			export.WithDateFormat(e.DateFormat),
		),
	}
	if c.Output.Dir != "" {
		opts = append(opts, WithSaver(collab.DirSaver{Dir: c.Output.Dir}))
	}

	if c.Collab.BaseURL != "" {
		client, err := collab.NewClient(c.Collab.BaseURL,
			collab.WithAPIKey(c.Collab.APIKey),
			collab.WithTimeout(c.Collab.Timeout.Duration),
			collab.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			WithPersister(client),
			WithClaimer(client),
			WithQuota(client),
			func(s *Session) { s.closers = append(s.closers, client.Close) },
		)
	}
	return opts, nil
}
