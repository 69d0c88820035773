// Package config provides configuration management for the nitro build
// orchestrator using Viper for flexible configuration loading from files,
// environment variables, and command-line flags.
//
// The configuration system supports YAML files (nitro.yml), environment
// variable overrides with NITRO_ prefix, and validation. All paths are
// resolved to absolute form once at load time, before any pipeline stage
// runs; pipeline code never re-derives paths from the working directory.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	// Root is the absolute project root every relative path is resolved
	// against. Set from the working directory or the --root flag.
	Root string `yaml:"-" mapstructure:"-"`

	Source     SourceConfig       `yaml:"source" mapstructure:"source"`
	Build      BuildConfig        `yaml:"build" mapstructure:"build"`
	Output     OutputConfig       `yaml:"output" mapstructure:"output"`
	Commands   CommandsConfig     `yaml:"commands" mapstructure:"commands"`
	Middleware []MiddlewareConfig `yaml:"middleware" mapstructure:"middleware"`
	Dev        DevConfig          `yaml:"dev" mapstructure:"dev"`
}

type SourceConfig struct {
	Dir           string `yaml:"dir" mapstructure:"dir"`
	Document      string `yaml:"document" mapstructure:"document"`
	MiddlewareDir string `yaml:"middleware_dir" mapstructure:"middleware_dir"`
	PublicDir     string `yaml:"public_dir" mapstructure:"public_dir"`
}

type BuildConfig struct {
	Dir       string   `yaml:"dir" mapstructure:"dir"`
	Entry     string   `yaml:"entry" mapstructure:"entry"`
	EntryName string   `yaml:"entry_name" mapstructure:"entry_name"`
	Command   string   `yaml:"command" mapstructure:"command"`
	Args      []string `yaml:"args" mapstructure:"args"`
	ClientDir string   `yaml:"client_dir" mapstructure:"client_dir"`
}

type OutputConfig struct {
	Dir        string `yaml:"dir" mapstructure:"dir"`
	PublicDir  string `yaml:"public_dir" mapstructure:"public_dir"`
	ServerDir  string `yaml:"server_dir" mapstructure:"server_dir"`
	PublicPath string `yaml:"public_path" mapstructure:"public_path"`
}

// CommandsConfig holds the user-facing commands recorded in the build
// manifest. Either may be empty, in which case it is omitted from the
// manifest entirely.
type CommandsConfig struct {
	Preview string `yaml:"preview" mapstructure:"preview"`
	Deploy  string `yaml:"deploy" mapstructure:"deploy"`
}

// MiddlewareConfig is a statically configured route-to-handler mapping.
// Handle is a file path; an empty Handle marks an inline handler that is
// registered programmatically and cannot contribute to type generation.
type MiddlewareConfig struct {
	Route  string `yaml:"route" mapstructure:"route"`
	Handle string `yaml:"handle" mapstructure:"handle"`
}

type DevConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

// Load builds the full configuration for one build or watch invocation.
// Values come from viper (flags, NITRO_ environment variables, nitro.yml)
// with defaults applied for everything unset. root must be the project
// root directory; it is resolved to absolute form.
func Load(root string) (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	config.Root = absRoot

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Source.Dir == "" {
		config.Source.Dir = "server"
	}
	if config.Source.Document == "" {
		config.Source.Document = "document.html"
	}
	if config.Source.MiddlewareDir == "" {
		config.Source.MiddlewareDir = "middleware"
	}
	if config.Source.PublicDir == "" {
		config.Source.PublicDir = "public"
	}

	if config.Build.Dir == "" {
		config.Build.Dir = ".nitro"
	}
	if config.Build.Entry == "" {
		config.Build.Entry = "index.mjs"
	}
	if config.Build.EntryName == "" {
		config.Build.EntryName = "index.mjs"
	}
	if config.Build.ClientDir == "" {
		config.Build.ClientDir = "client"
	}

	if config.Output.Dir == "" {
		config.Output.Dir = "dist"
	}
	if config.Output.PublicDir == "" {
		config.Output.PublicDir = "public"
	}
	if config.Output.ServerDir == "" {
		config.Output.ServerDir = "server"
	}
	if config.Output.PublicPath == "" {
		config.Output.PublicPath = "/"
	}

	if config.Dev.Host == "" {
		config.Dev.Host = "localhost"
	}
	if config.Dev.Port == 0 {
		config.Dev.Port = 35729
	}
}

// Validate checks the configuration for values the pipeline cannot work
// with. It is called by Load but exported for tests and tooling.
func (c *Config) Validate() error {
	if c.Root == "" || !filepath.IsAbs(c.Root) {
		return fmt.Errorf("project root must be an absolute path, got %q", c.Root)
	}
	if !strings.HasPrefix(c.Output.PublicPath, "/") {
		return fmt.Errorf("output public_path must start with '/', got %q", c.Output.PublicPath)
	}
	for _, m := range c.Middleware {
		if m.Route == "" {
			return fmt.Errorf("middleware entry with handle %q has no route", m.Handle)
		}
	}
	if c.Dev.Port < 0 || c.Dev.Port > 65535 {
		return fmt.Errorf("dev port out of range: %d", c.Dev.Port)
	}
	return nil
}

// resolve joins path to the project root unless it is already absolute.
func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Root, path)
}

// SrcDir returns the absolute server-source directory.
func (c *Config) SrcDir() string {
	return c.resolve(c.Source.Dir)
}

// BuildDir returns the absolute intermediate build directory.
func (c *Config) BuildDir() string {
	return c.resolve(c.Build.Dir)
}

// OutputDir returns the absolute output directory.
func (c *Config) OutputDir() string {
	return c.resolve(c.Output.Dir)
}

// PublicOutDir returns the absolute public-assets output directory.
func (c *Config) PublicOutDir() string {
	if filepath.IsAbs(c.Output.PublicDir) {
		return c.Output.PublicDir
	}
	return filepath.Join(c.OutputDir(), c.Output.PublicDir)
}

// ServerOutDir returns the absolute server-bundle output directory.
func (c *Config) ServerOutDir() string {
	if filepath.IsAbs(c.Output.ServerDir) {
		return c.Output.ServerDir
	}
	return filepath.Join(c.OutputDir(), c.Output.ServerDir)
}

// DocumentPath returns the absolute path of the HTML document template.
func (c *Config) DocumentPath() string {
	return filepath.Join(c.SrcDir(), c.Source.Document)
}

// MiddlewareDir returns the absolute middleware-source directory.
func (c *Config) MiddlewareDir() string {
	return filepath.Join(c.SrcDir(), c.Source.MiddlewareDir)
}

// PublicSrcDir returns the absolute static public-assets source directory.
func (c *Config) PublicSrcDir() string {
	return c.resolve(c.Source.PublicDir)
}

// ClientDistDir returns the absolute directory holding compiled client
// assets, if a client build produced any.
func (c *Config) ClientDistDir() string {
	return filepath.Join(c.BuildDir(), c.Build.ClientDir)
}

// EntryPath returns the absolute path of the bundler entry module.
func (c *Config) EntryPath() string {
	if filepath.IsAbs(c.Build.Entry) {
		return c.Build.Entry
	}
	return filepath.Join(c.BuildDir(), c.Build.Entry)
}

// TypesPath returns the absolute path of the generated route-type
// declarations file.
func (c *Config) TypesPath() string {
	return filepath.Join(c.BuildDir(), "nitro-routes.d.ts")
}

// ManifestPath returns the absolute path of the persisted build manifest.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.OutputDir(), "nitro.json")
}

// ServerEntryPath returns the absolute path of the bundled server entry
// module inside the output tree. This is what the build command reports
// so a caller can launch or inspect the produced bundle.
func (c *Config) ServerEntryPath() string {
	return filepath.Join(c.ServerOutDir(), c.Build.EntryName)
}
