package collab

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirSaver saves artifacts into a directory. Existing files are never
// overwritten; a numeric suffix is added instead.
type DirSaver struct {
	Dir string
}

func (d DirSaver) Save(ctx context.Context, a Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := filepath.Base(filepath.Clean("/" + a.Name))
	if name == "/" || name == "." {
		return "", fmt.Errorf("save: invalid file name %q", a.Name)
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("save: %w", err)
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i < 1000; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		path := filepath.Join(d.Dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("save: %w", err)
		}
		if _, err := f.Write(a.Data); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("save: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("save: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("save: no free name for %q in %s", name, d.Dir)
}
