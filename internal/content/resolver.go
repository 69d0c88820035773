// Package content provides file-content resolution with ordered fallbacks.
//
// The document template compiler reads its source through a Resolver so
// that in-memory overrides (virtual files registered by tooling before a
// build) take precedence over what is on disk.
package content

import (
	"errors"
	"io/fs"
	"os"
	"sync"
)

// ErrNotFound is returned when no source in the chain holds the path.
var ErrNotFound = errors.New("content: not found")

// Resolver resolves the contents of an absolute file path.
type Resolver interface {
	// Resolve returns the contents for path, or ErrNotFound when this
	// source does not hold it.
	Resolve(path string) (string, error)
}

// Overrides is an in-memory mapping from absolute path to file contents.
// It is safe for concurrent use.
type Overrides struct {
	mu    sync.RWMutex
	files map[string]string
}

// NewOverrides creates an empty override map.
func NewOverrides() *Overrides {
	return &Overrides{files: make(map[string]string)}
}

// Set registers contents for path, replacing any previous entry.
func (o *Overrides) Set(path, contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[path] = contents
}

// Resolve implements Resolver.
func (o *Overrides) Resolve(path string) (string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if contents, ok := o.files[path]; ok {
		return contents, nil
	}
	return "", ErrNotFound
}

// Disk resolves contents by reading the file from disk. A path that does
// not exist resolves to ErrNotFound; other read failures are returned
// as-is.
type Disk struct{}

// Resolve implements Resolver.
func (Disk) Resolve(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(data), nil
}

// Chain tries each resolver in order and returns the first hit.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(path string) (string, error) {
	for _, r := range c {
		contents, err := r.Resolve(path)
		if err == nil {
			return contents, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", ErrNotFound
}

// Default returns the standard resolution order: overrides first, then
// disk.
func Default(overrides *Overrides) Chain {
	if overrides == nil {
		overrides = NewOverrides()
	}
	return Chain{overrides, Disk{}}
}
