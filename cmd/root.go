// Package cmd provides the nitro command-line interface.
//
// Configuration sources, highest priority first:
//  1. Command-line flags (--root, --log-level, ...)
//  2. NITRO_ environment variables (NITRO_OUTPUT_DIR, NITRO_BUILD_COMMAND, ...)
//  3. nitro.yml in the project root
//
// The --config flag points viper at an explicit file; otherwise nitro.yml is
// searched in the project root.
package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Filipo11021/nitro/internal/logging"
)

var (
	cfgFile     string
	projectRoot string
	logLevel    string
	logFormat   string
)

var rootCmd = &cobra.Command{
	Use:   "nitro",
	Short: "Build and dev orchestrator for nitro server applications",
	Long: `Nitro bundles a server application into a deployable output directory.

It prepares the output layout, copies public assets, compiles the HTML
document into an importable template module, generates route type
declarations from the middleware sources, and drives the bundler either
once (build) or continuously with live reload (dev).

Quick Start:
  nitro init        Write a default nitro.yml
  nitro build       Produce a production bundle in dist/
  nitro dev         Watch sources and rebuild on change`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is nitro.yml in the project root)")
	rootCmd.PersistentFlags().StringVar(&projectRoot, "root", ".", "project root directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		viper.BindPFlag(f.Name, f)
	})
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(projectRoot)
		viper.SetConfigType("yaml")
		viper.SetConfigName("nitro")
	}

	viper.SetEnvPrefix("NITRO")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is fine; defaults and environment cover it.
	viper.ReadInConfig()
}

// newLogger builds the process logger from the persistent flags.
func newLogger() logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(logLevel),
		Format: logFormat,
		Output: os.Stderr,
	})
}
