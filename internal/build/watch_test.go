package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Filipo11021/nitro/internal/bundler"
	"github.com/Filipo11021/nitro/internal/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startWatcher runs the watch orchestrator in the background and returns
// a channel carrying its exit error.
func startWatcher(ctx context.Context, builder *Builder) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- NewWatcher(builder).Run(ctx)
	}()
	return done
}

func waitWatcherDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
		return nil
	}
}

func TestWatcherInitialTypesAndSession(t *testing.T) {
	cfg := testConfig(t)
	writeAsset(t, filepath.Join(cfg.MiddlewareDir(), "users.ts"), "export default () => ({})")

	fake := newFakeBundler()
	builder := New(Options{Cfg: cfg, Bundler: fake})

	ctx, cancel := context.WithCancel(context.Background())
	done := startWatcher(ctx, builder)

	require.Eventually(t, func() bool { return fake.sessionCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	// Initial scan and type write happened before the session opened.
	assert.Contains(t, readTypes(t, cfg), `"/users":`)

	cancel()
	require.NoError(t, waitWatcherDone(t, done))
	assert.True(t, fake.session(0).isClosed(), "shutdown must close the active session")
}

func TestWatcherRestartsOnNewMiddleware(t *testing.T) {
	cfg := testConfig(t)
	writeAsset(t, filepath.Join(cfg.MiddlewareDir(), "users.ts"), "export default () => ({})")

	fake := newFakeBundler()
	builder := New(Options{Cfg: cfg, Bundler: fake})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := startWatcher(ctx, builder)

	require.Eventually(t, func() bool { return fake.sessionCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	// A new handler file appears: exactly one close and one reopen.
	writeAsset(t, filepath.Join(cfg.MiddlewareDir(), "posts.ts"), "export default () => ({})")

	require.Eventually(t, func() bool { return fake.sessionCount() == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.True(t, fake.session(0).isClosed(), "previous session must be closed before the next opens")
	assert.False(t, fake.session(1).isClosed())

	// Type declarations were regenerated from the updated list.
	require.Eventually(t, func() bool {
		return strings.Contains(readTypes(t, cfg), `"/posts":`)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, waitWatcherDone(t, done))
	assert.Equal(t, 2, fake.sessionCount(), "a single change triggers a single restart")
}

func TestWatcherIgnoresModifications(t *testing.T) {
	cfg := testConfig(t)
	handler := filepath.Join(cfg.MiddlewareDir(), "users.ts")
	writeAsset(t, handler, "export default () => ({})")

	fake := newFakeBundler()
	builder := New(Options{Cfg: cfg, Bundler: fake})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := startWatcher(ctx, builder)

	require.Eventually(t, func() bool { return fake.sessionCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	// Rewriting a known file is the bundler watch's job, not a restart
	// trigger.
	require.NoError(t, os.WriteFile(handler, []byte("export default () => ({ v: 2 })"), 0644))

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 1, fake.sessionCount())
	assert.False(t, fake.session(0).isClosed())

	cancel()
	require.NoError(t, waitWatcherDone(t, done))
}

func TestWatcherBundleLifecycleHooks(t *testing.T) {
	cfg := testConfig(t)

	fake := newFakeBundler()
	bus := hooks.NewBus()
	counter := newHookCounter(bus, hooks.HookCompiled, hooks.HookDevReload)

	builder := New(Options{Cfg: cfg, Bus: bus, Bundler: fake})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := startWatcher(ctx, builder)

	require.Eventually(t, func() bool { return fake.sessionCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	session := fake.session(0)

	session.emit(bundler.Event{Kind: bundler.EventBundleStart, Time: time.Now()})
	session.emit(bundler.Event{Kind: bundler.EventEnd, Time: time.Now()})

	require.Eventually(t, func() bool {
		return counter.count(hooks.HookCompiled) == 1 && counter.count(hooks.HookDevReload) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, waitWatcherDone(t, done))
}

func TestWatcherBundlerErrorIsNonFatal(t *testing.T) {
	cfg := testConfig(t)

	fake := newFakeBundler()
	bus := hooks.NewBus()
	counter := newHookCounter(bus, hooks.HookCompiled)

	builder := New(Options{Cfg: cfg, Bus: bus, Bundler: fake})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := startWatcher(ctx, builder)

	require.Eventually(t, func() bool { return fake.sessionCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	session := fake.session(0)

	session.emit(bundler.Event{Kind: bundler.EventError, Err: errors.New("syntax error"), Time: time.Now()})

	// The session survives the error and later events are still handled.
	session.emit(bundler.Event{Kind: bundler.EventBundleStart, Time: time.Now()})
	session.emit(bundler.Event{Kind: bundler.EventEnd, Time: time.Now()})

	require.Eventually(t, func() bool {
		return counter.count(hooks.HookCompiled) == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.False(t, session.isClosed())
	assert.Equal(t, 1, fake.sessionCount())

	cancel()
	require.NoError(t, waitWatcherDone(t, done))
}

func TestWatcherNoticesMiddlewareCreatedLate(t *testing.T) {
	cfg := testConfig(t)

	// Fresh project: no middleware directory exists when the watcher
	// starts.
	require.NoDirExists(t, cfg.MiddlewareDir())

	fake := newFakeBundler()
	builder := New(Options{Cfg: cfg, Bundler: fake})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := startWatcher(ctx, builder)

	require.Eventually(t, func() bool { return fake.sessionCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	writeAsset(t, filepath.Join(cfg.MiddlewareDir(), "users.ts"), "export default () => ({})")

	// The directory's appearance restarts the session and the new
	// handler reaches the regenerated declarations.
	require.Eventually(t, func() bool { return fake.sessionCount() >= 2 }, 5*time.Second, 10*time.Millisecond)
	assert.True(t, fake.session(0).isClosed(), "previous session must close before the next opens")

	require.Eventually(t, func() bool {
		return strings.Contains(readTypes(t, cfg), `"/users":`)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, waitWatcherDone(t, done))
}
