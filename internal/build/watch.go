package build

import (
	"context"
	"time"

	"github.com/Filipo11021/nitro/internal/bundler"
	"github.com/Filipo11021/nitro/internal/errors"
	"github.com/Filipo11021/nitro/internal/hooks"
	"github.com/Filipo11021/nitro/internal/logging"
	"github.com/Filipo11021/nitro/internal/scanner"
)

// Watcher is the continuous development pipeline. It keeps exactly one
// bundler watch session alive, reacts to the session's lifecycle events,
// and independently subscribes to middleware-source changes: when a new
// handler file or directory appears, it closes the session, regenerates
// the route types and opens a fresh session. Closing strictly precedes
// reopening so the previous session's filesystem watch handle is
// released before the next one is created and no two sessions deliver
// events at the same time.
type Watcher struct {
	builder *Builder
	logger  logging.Logger
}

// NewWatcher creates the watch orchestrator around builder.
func NewWatcher(builder *Builder) *Watcher {
	return &Watcher{
		builder: builder,
		logger:  builder.logger.WithComponent("watch"),
	}
}

// Run drives the watch loop until ctx is cancelled. There is no internal
// terminal state: only cancellation ends the loop, and the active session
// is closed on the way out so its watch handles are released.
func (w *Watcher) Run(ctx context.Context) error {
	cfg := w.builder.cfg

	// Mirror the one-shot pre-compile steps; the watch session itself
	// performs the first build.
	if err := w.builder.scanAndWriteTypes(); err != nil {
		return err
	}

	sub, err := w.builder.scanner.Subscribe(ctx, cfg.MiddlewareDir())
	if err != nil {
		return errors.WrapPath(errors.StageWatch, cfg.MiddlewareDir(), "failed to watch middleware sources", err)
	}
	defer sub.Stop()

	session, err := w.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if session != nil {
			_ = session.Close()
		}
	}()

	events := session.Events()

	var bundleStart time.Time
	var bundleTimed bool

	for {
		select {
		case <-ctx.Done():
			return nil

		case change, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if change.Kind != scanner.ChangeAdded && change.Kind != scanner.ChangeDirAdded {
				// The bundler's own watch tracks contents of files it has
				// already resolved; only new entry points need a restart.
				continue
			}

			w.logger.Info(ctx, "middleware sources changed, restarting watch session",
				"kind", change.Kind.String(), "path", change.Path)

			if err := session.Close(); err != nil {
				w.logger.Warn(ctx, err, "failed to close watch session")
			}
			session = nil

			if err := WriteTypes(cfg, mergeDescriptors(cfg, change.List)); err != nil {
				// Logged only: a broken declarations file must not take
				// down the dev session.
				w.logger.Error(ctx, err, "type regeneration failed")
			}

			session, err = w.open(ctx)
			if err != nil {
				return err
			}
			events = session.Events()
			bundleTimed = false

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			switch event.Kind {
			case bundler.EventStart:
				w.logger.Debug(ctx, "watch session started")

			case bundler.EventBundleStart:
				bundleStart = event.Time
				bundleTimed = true

			case bundler.EventEnd:
				if err := w.builder.bus.Publish(ctx, hooks.HookCompiled, &hooks.CompiledEvent{
					OutputDir: cfg.OutputDir(),
					EntryPath: cfg.ServerEntryPath(),
				}); err != nil {
					return err
				}
				if bundleTimed {
					w.logger.Info(ctx, "bundle rebuilt", "elapsed", time.Since(bundleStart).Round(time.Millisecond).String())
					bundleTimed = false
				} else {
					w.logger.Info(ctx, "bundle rebuilt")
				}
				if err := w.builder.bus.Publish(ctx, hooks.HookDevReload, &hooks.DevReloadEvent{
					EntryPath: cfg.ServerEntryPath(),
				}); err != nil {
					return err
				}

			case bundler.EventError:
				// Bundler errors during continuous mode are non-fatal;
				// the session keeps watching.
				w.logger.Error(ctx, event.Err, "bundler error")
			}
		}
	}
}

// open publishes the pre-compile hook and starts a new watch session.
func (w *Watcher) open(ctx context.Context) (bundler.Session, error) {
	spec := w.builder.bundleSpec()
	if err := w.builder.bus.Publish(ctx, hooks.HookBuildBefore, &hooks.BuildBeforeEvent{Spec: spec}); err != nil {
		return nil, err
	}
	session, err := w.builder.bundler.Watch(ctx, spec)
	if err != nil {
		return nil, errors.Wrap(errors.StageWatch, "failed to open watch session", err)
	}
	return session, nil
}
