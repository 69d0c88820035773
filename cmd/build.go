package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Filipo11021/nitro/internal/build"
	"github.com/Filipo11021/nitro/internal/config"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Produce a production server bundle",
	Long: `Build runs the full one-shot pipeline: clear the output directory,
copy public assets, compile the document template, generate route type
declarations, invoke the bundler, and write the build manifest.

The command exits non-zero if any stage fails.`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load(projectRoot)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := build.Prepare(cfg); err != nil {
		return err
	}
	if err := build.CopyPublicAssets(cfg); err != nil {
		return err
	}

	builder := build.New(build.Options{Cfg: cfg, Logger: logger})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	entryPath, err := builder.Build(ctx, false)
	if err != nil {
		return err
	}

	logger.Info(ctx, "build complete", "entry", entryPath)
	return nil
}
