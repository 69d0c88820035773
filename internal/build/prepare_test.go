package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Filipo11021/nitro/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	return cfg
}

func TestPrepareCreatesEmptyOutputDir(t *testing.T) {
	cfg := testConfig(t)

	// Stale artifacts from a previous build.
	stale := filepath.Join(cfg.OutputDir(), "stale.txt")
	require.NoError(t, os.MkdirAll(cfg.OutputDir(), 0755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	require.NoError(t, Prepare(cfg))

	entries, err := os.ReadDir(cfg.OutputDir())
	require.NoError(t, err)
	assert.Empty(t, entries, "output directory must be empty after prepare")
}

func TestPrepareSkipsNestedDirectories(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, Prepare(cfg))

	// Nested public/server dirs are cleared by the parent operation and
	// must not be independently recreated by a second clear.
	assert.NoDirExists(t, cfg.PublicOutDir())
	assert.NoDirExists(t, cfg.ServerOutDir())
}

func TestPrepareClearsExternalDirectories(t *testing.T) {
	external := t.TempDir()
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("output.server_dir", external)

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	stale := filepath.Join(external, "stale.mjs")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	require.NoError(t, Prepare(cfg))

	assert.NoFileExists(t, stale)
	assert.DirExists(t, external)
}

func TestIsSubpath(t *testing.T) {
	assert.True(t, isSubpath("/a/b", "/a/b"))
	assert.True(t, isSubpath("/a/b", "/a/b/c"))
	assert.True(t, isSubpath("/a/b", "/a/b/c/d"))
	assert.False(t, isSubpath("/a/b", "/a"))
	assert.False(t, isSubpath("/a/b", "/a/bc"))
	assert.False(t, isSubpath("/a/b", "/x/y"))
}
