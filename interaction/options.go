package interaction

import (
	"log/slog"
	"time"

	"github.com/digitorus/pdfstamp/element"
)

// Option configures an Editor.
type Option func(*Editor)

// WithIDFunc sets the element ID generator.
func WithIDFunc(f element.IDFunc) Option {
	return func(e *Editor) {
		if f != nil {
			e.newID = f
		}
	}
}

// WithClock sets the time source used to prefill date elements.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithDateFormat sets the Go time layout of prefilled dates.
func WithDateFormat(layout string) Option {
	return func(e *Editor) {
		if layout != "" {
			e.dateFormat = layout
		}
	}
}

// WithMinSize sets the smallest width and height a resize can produce.
func WithMinSize(v float64) Option {
	return func(e *Editor) {
		if v > 0 {
			e.minSize = v
		}
	}
}

// WithHistoryLimit caps the number of undo snapshots.
func WithHistoryLimit(n int) Option {
	return func(e *Editor) { e.historyLimit = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

// WithZoomLimits bounds SetZoom.
func WithZoomLimits(min, max float64) Option {
	return func(e *Editor) {
		if min > 0 && max >= min {
			e.minZoom, e.maxZoom = min, max
		}
	}
}

// WithClickThreshold sets the pointer travel, in pointer pixels, below
// which a press counts as a click rather than a drag.
func WithClickThreshold(px float64) Option {
	return func(e *Editor) {
		if px >= 0 {
			e.clickThreshold = px
		}
	}
}

// WithStampLimits bounds the display size of placed bitmaps.
func WithStampLimits(min, max float64) Option {
	return func(e *Editor) {
		if min > 0 && max >= min {
			e.stampMin, e.stampMax = min, max
		}
	}
}

// WithHandleSize sets the resize handle size in pointer pixels.
func WithHandleSize(px float64) Option {
	return func(e *Editor) {
		if px > 0 {
			e.handleSize = px
		}
	}
}

// WithOnCommit registers a callback invoked with every committed
// snapshot. It runs with the editor locked and must not call back into
// the editor.
func WithOnCommit(f func([]element.Element)) Option {
	return func(e *Editor) { e.onCommit = f }
}
