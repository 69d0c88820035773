package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("export default () => ({})\n"), 0644))
}

func TestScanMissingDirectory(t *testing.T) {
	s := New(nil)
	descriptors, err := s.Scan(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, descriptors)
}

func TestScanDiscoversHandlers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "users.ts"))
	writeFile(t, filepath.Join(dir, "api", "posts.mjs"))
	writeFile(t, filepath.Join(dir, "api", "index.ts"))
	writeFile(t, filepath.Join(dir, "index.ts"))

	// Not handlers.
	writeFile(t, filepath.Join(dir, "types.d.ts"))
	writeFile(t, filepath.Join(dir, "readme.md"))
	writeFile(t, filepath.Join(dir, ".hidden.ts"))
	writeFile(t, filepath.Join(dir, "node_modules", "pkg", "index.js"))

	s := New(nil)
	descriptors, err := s.Scan(dir)
	require.NoError(t, err)

	routes := make(map[string]string)
	for _, d := range descriptors {
		routes[d.Route] = d.Handle
	}

	assert.Len(t, descriptors, 4)
	assert.Equal(t, filepath.Join(dir, "users.ts"), routes["/users"])
	assert.Equal(t, filepath.Join(dir, "api", "posts.mjs"), routes["/api/posts"])
	assert.Equal(t, filepath.Join(dir, "api", "index.ts"), routes["/api"])
	assert.Equal(t, filepath.Join(dir, "index.ts"), routes["/"])
}

func TestScanOrderIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.ts"))
	writeFile(t, filepath.Join(dir, "a.ts"))
	writeFile(t, filepath.Join(dir, "c", "d.ts"))

	s := New(nil)
	first, err := s.Scan(dir)
	require.NoError(t, err)
	second, err := s.Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRouteForFile(t *testing.T) {
	assert.Equal(t, "/users", RouteForFile("users.ts"))
	assert.Equal(t, "/api/posts", RouteForFile("api/posts.mjs"))
	assert.Equal(t, "/api", RouteForFile("api/index.ts"))
	assert.Equal(t, "/", RouteForFile("index.ts"))
	assert.Equal(t, "/index/nested", RouteForFile("index/nested.js"))
}

func TestIsHandlerFile(t *testing.T) {
	assert.True(t, IsHandlerFile("/src/middleware/users.ts"))
	assert.True(t, IsHandlerFile("handler.mjs"))
	assert.False(t, IsHandlerFile("types.d.ts"))
	assert.False(t, IsHandlerFile(".hidden.ts"))
	assert.False(t, IsHandlerFile("notes.md"))
}
