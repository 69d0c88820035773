// Package build implements the core of the nitro orchestrator: output
// preparation, asset copying, document-template compilation, route-type
// generation, the one-shot production build, and the continuous watch
// pipeline.
//
// Stages run strictly in sequence; nothing here schedules work in
// parallel. Shared state is the configuration and the output tree, so a
// caller must not run two pipelines against the same output paths at
// once.
package build

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Filipo11021/nitro/internal/config"
	"github.com/Filipo11021/nitro/internal/errors"
)

// Prepare empties the output directory, and independently empties the
// public and server output directories when they are not nested inside
// the output directory. Nested directories are already gone after the
// parent is cleared; re-clearing them would race the parent removal.
// Any I/O failure is fatal and aborts the pipeline.
func Prepare(cfg *config.Config) error {
	out := cfg.OutputDir()
	if err := clearDir(out); err != nil {
		return errors.WrapPath(errors.StagePrepare, out, "failed to clear output directory", err)
	}

	for _, dir := range []string{cfg.PublicOutDir(), cfg.ServerOutDir()} {
		if isSubpath(out, dir) {
			continue
		}
		if err := clearDir(dir); err != nil {
			return errors.WrapPath(errors.StagePrepare, dir, "failed to clear directory", err)
		}
	}
	return nil
}

// clearDir removes dir and recreates it empty.
func clearDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// isSubpath reports whether child is parent or lies beneath it.
func isSubpath(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// ensureParent creates the directory containing path.
func ensureParent(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return nil
}
