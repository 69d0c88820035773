package build

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Filipo11021/nitro/internal/config"
	"github.com/Filipo11021/nitro/internal/errors"
)

// CopyPublicAssets copies compiled client assets and static public assets
// into the output public directory. Each copy is conditional on its
// source existing; a missing source is a silent no-op. Pre-existing
// destination files are overwritten, so repeated runs produce the same
// destination tree.
func CopyPublicAssets(cfg *config.Config) error {
	if clientDist := cfg.ClientDistDir(); dirExists(clientDist) {
		dest := filepath.Join(cfg.PublicOutDir(), publicPathSegment(cfg.Output.PublicPath))
		if err := copyDir(clientDist, dest); err != nil {
			return errors.WrapPath(errors.StageAssets, clientDist, "failed to copy client assets", err)
		}
	}

	if publicSrc := cfg.PublicSrcDir(); dirExists(publicSrc) {
		if err := copyDir(publicSrc, cfg.PublicOutDir()); err != nil {
			return errors.WrapPath(errors.StageAssets, publicSrc, "failed to copy public assets", err)
		}
	}

	return nil
}

// publicPathSegment converts the URL public path prefix into a relative
// filesystem segment ("/" and "" become the directory itself).
func publicPathSegment(publicPath string) string {
	trimmed := strings.Trim(publicPath, "/")
	if trimmed == "" {
		return "."
	}
	return filepath.FromSlash(trimmed)
}

// copyDir recursively copies src into dest, overwriting existing files.
func copyDir(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := ensureParent(dest); err != nil {
		return err
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
