// Package scanner provides middleware-handler discovery for the build
// orchestrator.
//
// The scanner traverses the middleware-source directory to find handler
// modules, derives the route each handler serves from its path relative
// to the scan root, and supports a subscription mode that rescans and
// broadcasts the updated descriptor list whenever a relevant source file
// changes. Directory traversal is lexical, so repeated scans of an
// unchanged tree produce the same descriptor order.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Filipo11021/nitro/internal/logging"
)

// Descriptor is a route-to-handler mapping describing one server-side
// endpoint handler's location. Handle is the absolute path of the handler
// module; descriptors with an empty Handle describe inline handlers and
// are skipped by type generation.
type Descriptor struct {
	Route  string
	Handle string
}

// handlerExtensions are the module extensions considered handler sources.
var handlerExtensions = map[string]bool{
	".ts":  true,
	".mts": true,
	".js":  true,
	".mjs": true,
}

// Scanner discovers middleware handlers in a source tree.
type Scanner struct {
	logger logging.Logger
}

// New creates a middleware scanner.
func New(logger logging.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewLogger(nil)
	}
	return &Scanner{logger: logger.WithComponent("scanner")}
}

// Scan walks dir and returns a descriptor for every handler module found.
// A missing directory yields an empty list, not an error: projects without
// middleware are valid.
func (s *Scanner) Scan(dir string) ([]Descriptor, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var descriptors []Descriptor
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(name, ".") || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsHandlerFile(path) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		descriptors = append(descriptors, Descriptor{
			Route:  RouteForFile(rel),
			Handle: path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return descriptors, nil
}

// IsHandlerFile reports whether path names a middleware handler module.
func IsHandlerFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if strings.HasSuffix(name, ".d.ts") {
		return false
	}
	return handlerExtensions[filepath.Ext(name)]
}

// RouteForFile derives the served route from a handler path relative to
// the scan root: the extension is stripped, separators become '/', and a
// trailing "index" segment collapses to its directory.
//
//	users.ts          -> /users
//	api/posts.mjs     -> /api/posts
//	api/index.ts      -> /api
//	index.ts          -> /
func RouteForFile(rel string) string {
	route := filepath.ToSlash(rel)
	route = strings.TrimSuffix(route, filepath.Ext(route))
	route = "/" + route
	if route == "/index" {
		return "/"
	}
	return strings.TrimSuffix(route, "/index")
}
