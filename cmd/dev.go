package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Filipo11021/nitro/internal/build"
	"github.com/Filipo11021/nitro/internal/config"
	"github.com/Filipo11021/nitro/internal/devserver"
)

var devCmd = &cobra.Command{
	Use:     "dev",
	Aliases: []string{"d"},
	Short:   "Watch sources and rebuild continuously",
	Long: `Dev runs the continuous pipeline: after the initial build it keeps a
bundler watch session open, regenerates route type declarations when
middleware files are added, and notifies live-reload clients over a
websocket endpoint after every successful rebuild.

The command runs until interrupted (Ctrl-C); the watch session is closed
before exit.`,
	RunE: runDev,
}

func init() {
	rootCmd.AddCommand(devCmd)
}

func runDev(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load(projectRoot)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := build.Prepare(cfg); err != nil {
		return err
	}
	if err := build.CopyPublicAssets(cfg); err != nil {
		return err
	}

	builder := build.New(build.Options{Cfg: cfg, Logger: logger})

	hub := devserver.NewReloadHub(logger)
	defer hub.Close()
	hub.Attach(builder.Bus())

	addr := net.JoinHostPort(cfg.Dev.Host, fmt.Sprintf("%d", cfg.Dev.Port))
	reloadServer := &http.Server{Addr: addr, Handler: hub}
	go func() {
		logger.Info(ctx, "live reload listening", "addr", addr)
		if err := reloadServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn(ctx, err, "live reload server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		reloadServer.Shutdown(shutdownCtx)
	}()

	_, err = builder.Build(ctx, true)
	return err
}
