package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoad(t *testing.T) {
	const content = `
[editor]
max_zoom = 3
date_format = "02.01.2006"

[export]
supersample = 4
signer_name = "Jane Doe"

[render]
rasterizer = "blank"
timeout = "5s"

[collab]
base_url = "https://docs.example.com/api"

[log]
format = "json"
`
	path := filepath.Join(t.TempDir(), "pdfstamp.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Editor.MaxZoom != 3 || c.Editor.MinZoom != 0.25 {
		t.Errorf("zoom = [%g, %g]", c.Editor.MinZoom, c.Editor.MaxZoom)
	}
	if c.Editor.DateFormat != "02.01.2006" || c.Export.Supersample != 4 || c.Export.SignerName != "Jane Doe" {
		t.Errorf("unexpected values %+v %+v", c.Editor, c.Export)
	}
	if c.Render.Rasterizer != "blank" || c.Render.Timeout.Duration != 5*time.Second {
		t.Errorf("render = %+v", c.Render)
	}
	if c.Collab.BaseURL != "https://docs.example.com/api" || c.Collab.Timeout.Duration != 30*time.Second {
		t.Errorf("collab = %+v", c.Collab)
	}
	if c.Log.Format != "json" || c.Log.Level != "info" {
		t.Errorf("log = %+v", c.Log)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"supersample", "[export]\nsupersample = 2", "supersample"},
		{"zoom", "[editor]\nmin_zoom = 2\nmax_zoom = 1", "zoom range"},
		{"rasterizer", "[render]\nrasterizer = \"ghostscript\"", "ghostscript"},
		{"log format", "[log]\nformat = \"xml\"", "xml"},
		{"base url", "[collab]\nbase_url = \"not a url\"", "not a url"},
		{"duration", "[render]\ntimeout = \"soon\"", "soon"},
		{"unknown key", "[editor]\ncolour = \"red\"", "editor.colour"},
		{"compression", "[export]\ncompress_level = 12", "compress_level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.content)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Parse() error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := LogConfig{Level: "warn", Format: "json"}.Logger(&buf)
	l.Info("hidden")
	l.Warn("shown", "page", 2)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"page":2`) {
		t.Errorf("log output = %q", out)
	}
}
