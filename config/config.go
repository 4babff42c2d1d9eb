// Package config loads the TOML configuration of the stamping tools.
package config

import (
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/asaskevich/govalidator"
)

// Config is the root of the config.
type Config struct {
	Editor Editor    `toml:"editor"`
	Export Export    `toml:"export"`
	Upload Upload    `toml:"upload"`
	Render Render    `toml:"render"`
	Collab Collab    `toml:"collab"`
	Output Output    `toml:"output"`
	Log    LogConfig `toml:"log"`
}

// Editor holds placement and gesture settings.
type Editor struct {
	MinElementSize float64 `toml:"min_element_size"`
	MinZoom        float64 `toml:"min_zoom"`
	MaxZoom        float64 `toml:"max_zoom"`
	HistoryLimit   int     `toml:"history_limit"` // 0 keeps every snapshot
	DateFormat     string  `toml:"date_format"`
	ClickThreshold float64 `toml:"click_threshold"`
	StampMin       float64 `toml:"stamp_min"`
	StampMax       float64 `toml:"stamp_max"`
}

type Export struct {
	Supersample   int    `toml:"supersample"`
	CompressLevel int    `toml:"compress_level"`
	SignerName    string `toml:"signer_name"`
}

type Upload struct {
	MaxDimension int   `toml:"max_dimension"`
	MaxFileSize  int64 `toml:"max_file_size"`
}

type Render struct {
	Rasterizer   string   `toml:"rasterizer" valid:"in(auto|pdftoppm|blank)"`
	PdftoppmPath string   `toml:"pdftoppm_path"`
	Timeout      Duration `toml:"timeout"`
}

// Collab configures the document service. An empty BaseURL disables
// remote persistence, claiming and quota checks.
type Collab struct {
	BaseURL string   `toml:"base_url" valid:"url,optional"`
	APIKey  string   `toml:"api_key"`
	Timeout Duration `toml:"timeout"`
}

type Output struct {
	Dir string `toml:"dir"`
}

type LogConfig struct {
	Level  string `toml:"level" valid:"in(debug|info|warn|error)"`
	Format string `toml:"format" valid:"in(text|json)"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns a working configuration.
func Default() Config {
	return Config{
		Editor: Editor{
			MinElementSize: 20,
			MinZoom:        0.25,
			MaxZoom:        4,
			DateFormat:     "2006-01-02",
			ClickThreshold: 3,
			StampMin:       40,
			StampMax:       300,
		},
		Export: Export{
			Supersample:   3,
			CompressLevel: zlib.DefaultCompression,
		},
		Upload: Upload{
			MaxDimension: 2000,
			MaxFileSize:  25 << 20,
		},
		Render: Render{
			Rasterizer: "auto",
			Timeout:    Duration{30 * time.Second},
		},
		Collab: Collab{
			Timeout: Duration{30 * time.Second},
		},
		Output: Output{Dir: "."},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the file at path over the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c, err := Parse(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes TOML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data string) (Config, error) {
	c := Default()
	md, err := toml.Decode(data, &c)
	if err != nil {
		return Config{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks tagged fields and numeric ranges.
func (c Config) Validate() error {
	var errs []error
	if _, err := govalidator.ValidateStruct(c); err != nil {
		errs = append(errs, err)
	}
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	e := c.Editor
	check(e.MinElementSize > 0, "editor.min_element_size must be positive")
	check(e.MinZoom > 0 && e.MaxZoom >= e.MinZoom, "editor zoom range [%g, %g] is invalid", e.MinZoom, e.MaxZoom)
	check(e.HistoryLimit >= 0, "editor.history_limit must not be negative")
	check(e.DateFormat != "", "editor.date_format is required")
	check(e.ClickThreshold >= 0, "editor.click_threshold must not be negative")
	check(e.StampMin > 0 && e.StampMax >= e.StampMin, "editor stamp range [%g, %g] is invalid", e.StampMin, e.StampMax)

	check(c.Export.Supersample >= 3, "export.supersample must be at least 3")
	check(c.Export.CompressLevel >= zlib.HuffmanOnly && c.Export.CompressLevel <= zlib.BestCompression,
		"export.compress_level %d is out of range", c.Export.CompressLevel)

	check(c.Upload.MaxDimension >= 0, "upload.max_dimension must not be negative")
	check(c.Upload.MaxFileSize > 0, "upload.max_file_size must be positive")
	check(c.Render.Timeout.Duration >= 0, "render.timeout must not be negative")
	check(c.Collab.Timeout.Duration >= 0, "collab.timeout must not be negative")
	return errors.Join(errs...)
}

// Logger builds a logger writing to w.
func (l LogConfig) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch l.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
