package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Filipo11021/nitro/internal/config"
)

func resetCmdState(t *testing.T, root string) {
	t.Helper()

	viper.Reset()
	prevRoot := projectRoot
	projectRoot = root
	initForce = false
	versionFormat = "text"
	t.Cleanup(func() {
		viper.Reset()
		projectRoot = prevRoot
	})
}

func TestRegisteredCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"build", "dev", "init", "version"} {
		assert.True(t, names[want], "command %q not registered", want)
	}
}

func TestInitWritesDefaultConfig(t *testing.T) {
	root := t.TempDir()
	resetCmdState(t, root)

	cmd := initCmd
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, runInit(cmd, nil))

	path := filepath.Join(root, "nitro.yml")
	require.FileExists(t, path)
	assert.Contains(t, out.String(), "nitro.yml")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, "server", cfg.Source.Dir)
	assert.Equal(t, "dist", cfg.Output.Dir)
	assert.Equal(t, 35729, cfg.Dev.Port)
}

func TestInitRefusesOverwrite(t *testing.T) {
	root := t.TempDir()
	resetCmdState(t, root)

	path := filepath.Join(root, "nitro.yml")
	require.NoError(t, os.WriteFile(path, []byte("source:\n  dir: app\n"), 0644))

	err := runInit(initCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dir: app")

	initForce = true
	require.NoError(t, runInit(initCmd, nil))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dir: server")
}

func TestVersionTextOutput(t *testing.T) {
	resetCmdState(t, ".")

	cmd := versionCmd
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, runVersion(cmd, nil))
	assert.Contains(t, out.String(), "nitro dev")
	assert.Contains(t, out.String(), "Platform:")
}

func TestVersionJSONOutput(t *testing.T) {
	resetCmdState(t, ".")
	versionFormat = "json"

	cmd := versionCmd
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, runVersion(cmd, nil))

	var info map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, "dev", info["version"])
	assert.NotEmpty(t, info["go_version"])
}

func TestVersionUnsupportedFormat(t *testing.T) {
	resetCmdState(t, ".")
	versionFormat = "xml"

	err := runVersion(versionCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestBuildRunsFullPipeline(t *testing.T) {
	root := t.TempDir()
	resetCmdState(t, root)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "server", "middleware"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "server", "middleware", "users.ts"),
		[]byte("export default () => ({})\n"), 0644))

	// The bundler is an external command whose stdout is the bundle.
	viper.Set("build.command", "sh")
	viper.Set("build.args", []string{"-c", "printf 'export default {};'"})

	require.NoError(t, runBuild(buildCmd, nil))

	assert.FileExists(t, filepath.Join(root, "dist", "server", "index.mjs"))
	assert.FileExists(t, filepath.Join(root, "dist", "nitro.json"))
	assert.FileExists(t, filepath.Join(root, ".nitro", "nitro-routes.d.ts"))

	data, err := os.ReadFile(filepath.Join(root, ".nitro", "nitro-routes.d.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"/users"`)
}

func TestBuildFailsWhenBundlerFails(t *testing.T) {
	root := t.TempDir()
	resetCmdState(t, root)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "server"), 0755))
	viper.Set("build.command", "sh")
	viper.Set("build.args", []string{"-c", "echo boom >&2; exit 1"})

	err := runBuild(buildCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile failed")
	assert.Contains(t, err.Error(), "boom")
}
