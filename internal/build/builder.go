package build

import (
	"context"
	"time"

	"github.com/Filipo11021/nitro/internal/bundler"
	"github.com/Filipo11021/nitro/internal/config"
	"github.com/Filipo11021/nitro/internal/content"
	"github.com/Filipo11021/nitro/internal/errors"
	"github.com/Filipo11021/nitro/internal/hooks"
	"github.com/Filipo11021/nitro/internal/logging"
	"github.com/Filipo11021/nitro/internal/scanner"
)

// Builder coordinates one build or watch invocation. It owns the hook
// bus, the middleware scanner, the bundler handle and the content
// resolver for the lifetime of the invocation. A Builder must not be
// shared between concurrent invocations targeting the same output paths.
type Builder struct {
	cfg      *config.Config
	bus      *hooks.Bus
	scanner  *scanner.Scanner
	bundler  bundler.Bundler
	resolver content.Resolver
	logger   logging.Logger
}

// Options assembles a Builder. Cfg is required; every nil collaborator
// gets a working default.
type Options struct {
	Cfg      *config.Config
	Bus      *hooks.Bus
	Bundler  bundler.Bundler
	Resolver content.Resolver
	Logger   logging.Logger
}

// New creates a Builder from opts.
func New(opts Options) *Builder {
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger(nil)
	}
	if opts.Bus == nil {
		opts.Bus = hooks.NewBus()
	}
	if opts.Bundler == nil {
		opts.Bundler = bundler.NewExec(opts.Logger)
	}
	if opts.Resolver == nil {
		opts.Resolver = content.Default(nil)
	}
	return &Builder{
		cfg:      opts.Cfg,
		bus:      opts.Bus,
		scanner:  scanner.New(opts.Logger),
		bundler:  opts.Bundler,
		resolver: opts.Resolver,
		logger:   opts.Logger.WithComponent("build"),
	}
}

// Bus exposes the hook bus so callers can register extension handlers
// before the pipeline runs.
func (b *Builder) Bus() *hooks.Bus {
	return b.bus
}

// Build runs the full pipeline after Prepare and CopyPublicAssets: the
// document template is compiled once, then control dispatches to the
// one-shot production build or the continuous watch session depending on
// dev. In production mode it returns the absolute path of the bundled
// server entry module; in dev mode it blocks until ctx is cancelled and
// returns an empty path.
func (b *Builder) Build(ctx context.Context, dev bool) (string, error) {
	if err := b.CompileDocument(ctx); err != nil {
		return "", err
	}

	if dev {
		return "", NewWatcher(b).Run(ctx)
	}
	return b.buildOnce(ctx)
}

// bundleSpec constructs the bundle specification from the configuration.
// Watch sessions and one-shot compiles share the same spec shape.
func (b *Builder) bundleSpec() *bundler.Spec {
	return &bundler.Spec{
		Entry:     b.cfg.EntryPath(),
		EntryName: b.cfg.Build.EntryName,
		WorkDir:   b.cfg.SrcDir(),
		OutDir:    b.cfg.ServerOutDir(),
		Command:   b.cfg.Build.Command,
		Args:      b.cfg.Build.Args,
	}
}

// scanAndWriteTypes rescans the middleware sources and regenerates the
// route-type declarations from the fresh list plus the static config.
func (b *Builder) scanAndWriteTypes() error {
	scanned, err := b.scanner.Scan(b.cfg.MiddlewareDir())
	if err != nil {
		return errors.WrapPath(errors.StageScan, b.cfg.MiddlewareDir(), "middleware scan failed", err)
	}
	return WriteTypes(b.cfg, mergeDescriptors(b.cfg, scanned))
}

// buildOnce is the one-shot production pipeline: scan middleware,
// regenerate types, compile, persist output and manifest, report the
// output tree, fire the completion hook.
func (b *Builder) buildOnce(ctx context.Context) (string, error) {
	if err := b.scanAndWriteTypes(); err != nil {
		return "", err
	}

	spec := b.bundleSpec()
	if err := b.bus.Publish(ctx, hooks.HookBuildBefore, &hooks.BuildBeforeEvent{Spec: spec}); err != nil {
		return "", err
	}

	result, err := b.bundler.Build(ctx, spec)
	if err != nil {
		b.logger.Error(ctx, err, "bundle compile failed")
		return "", errors.Wrap(errors.StageBundle, "compile failed", err)
	}

	if _, err := result.Write(b.cfg.ServerOutDir()); err != nil {
		return "", errors.WrapPath(errors.StageBundle, b.cfg.ServerOutDir(), "failed to write bundle", err)
	}

	if err := WriteManifest(b.cfg, time.Now()); err != nil {
		return "", err
	}

	if tree, err := Tree(b.cfg.ServerOutDir()); err == nil {
		b.logger.Info(ctx, "server output\n"+tree)
	} else {
		b.logger.Warn(ctx, err, "failed to render output summary")
	}

	entryPath := b.cfg.ServerEntryPath()
	if err := b.bus.Publish(ctx, hooks.HookCompiled, &hooks.CompiledEvent{
		OutputDir: b.cfg.OutputDir(),
		EntryPath: entryPath,
	}); err != nil {
		return "", err
	}

	return entryPath, nil
}
