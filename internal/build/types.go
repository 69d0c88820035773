package build

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Filipo11021/nitro/internal/config"
	"github.com/Filipo11021/nitro/internal/errors"
	"github.com/Filipo11021/nitro/internal/scanner"
)

// WriteTypes generates the route-type declarations file from the full
// middleware list. Each file-backed handler contributes a return-type
// expression to its route; a route served by several handlers gets the
// union of their expressions. Routes and union members keep first-seen
// order. Descriptors without a handler file are skipped: an inline
// handler has no module to import from. The write is a total overwrite
// and always reflects the list it was given, never a diff.
func WriteTypes(cfg *config.Config, descriptors []scanner.Descriptor) error {
	var routes []string
	unions := make(map[string][]string)

	for _, d := range descriptors {
		if d.Handle == "" {
			continue
		}
		importPath, err := typeImportPath(cfg.BuildDir(), d.Handle)
		if err != nil {
			return errors.WrapPath(errors.StageTypes, d.Handle, "failed to derive import path", err)
		}
		if _, seen := unions[d.Route]; !seen {
			routes = append(routes, d.Route)
		}
		expr := fmt.Sprintf("Awaited<ReturnType<typeof import(%q).default>>", importPath)
		unions[d.Route] = append(unions[d.Route], expr)
	}

	var b strings.Builder
	b.WriteString("// Generated by nitro. Do not edit.\n\n")
	b.WriteString("declare module \"nitro/app\" {\n")
	b.WriteString("  interface ServerRoutes {\n")
	for _, route := range routes {
		fmt.Fprintf(&b, "    %q: %s;\n", route, strings.Join(unions[route], " | "))
	}
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
	b.WriteString("export {};\n")

	path := cfg.TypesPath()
	if err := ensureParent(path); err != nil {
		return errors.WrapPath(errors.StageTypes, path, "failed to prepare declarations directory", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return errors.WrapPath(errors.StageTypes, path, "failed to write declarations", err)
	}
	return nil
}

// typeImportPath computes the module import path for a handler: relative
// to the build directory, forward slashes, extension stripped, and
// anchored with "./" when it does not already climb out.
func typeImportPath(buildDir, handle string) (string, error) {
	rel, err := filepath.Rel(buildDir, handle)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel, nil
}

// mergeDescriptors combines the dynamically scanned middleware list with
// the statically configured one, scanned entries first. Static handles
// given as relative paths are resolved against the project root.
func mergeDescriptors(cfg *config.Config, scanned []scanner.Descriptor) []scanner.Descriptor {
	merged := make([]scanner.Descriptor, 0, len(scanned)+len(cfg.Middleware))
	merged = append(merged, scanned...)
	for _, m := range cfg.Middleware {
		handle := m.Handle
		if handle != "" && !filepath.IsAbs(handle) {
			handle = filepath.Join(cfg.Root, handle)
		}
		merged = append(merged, scanner.Descriptor{Route: m.Route, Handle: handle})
	}
	return merged
}
