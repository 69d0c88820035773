package build

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Tree renders a human-readable summary of a directory tree with file
// sizes, used to report the produced server output after a build. It is
// an observability aid; rendering failures are reported but never fail
// the build.
func Tree(root string) (string, error) {
	var b strings.Builder
	b.WriteString(filepath.Base(root) + "/\n")

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		depth := strings.Count(rel, string(filepath.Separator))
		indent := strings.Repeat("  ", depth+1)

		if d.IsDir() {
			fmt.Fprintf(&b, "%s%s/\n", indent, d.Name())
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "%s%s (%s)\n", indent, d.Name(), formatSize(info.Size()))
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatSize(size int64) string {
	const kb = 1024
	if size < kb {
		return fmt.Sprintf("%d B", size)
	}
	return fmt.Sprintf("%.1f kB", float64(size)/kb)
}
