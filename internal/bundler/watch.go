package bundler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchSession rebuilds the bundle whenever a source under WorkDir
// changes and reports each pass through lifecycle events.
type watchSession struct {
	events  chan Event
	watcher *fsnotify.Watcher
	closed  chan struct{}
	once    sync.Once
}

// Watch implements Bundler. The session performs its own first build
// immediately after emitting EventStart, so opening a session is enough
// to produce an initial bundle.
func (e *Exec) Watch(ctx context.Context, spec *Spec) (Session, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watchRecursive(watcher, spec.WorkDir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	s := &watchSession{
		events:  make(chan Event, 16),
		watcher: watcher,
		closed:  make(chan struct{}),
	}

	go s.run(ctx, e, spec)

	return s, nil
}

// Events implements Session.
func (s *watchSession) Events() <-chan Event {
	return s.events
}

// Close implements Session. It releases the filesystem watch handle;
// after Close returns no further events are produced and the events
// channel is closed.
func (s *watchSession) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		err = s.watcher.Close()
	})
	return err
}

func (s *watchSession) run(ctx context.Context, e *Exec, spec *Spec) {
	defer close(s.events)

	s.emit(Event{Kind: EventStart, Time: time.Now()})
	s.rebuild(ctx, e, spec)

	for {
		select {
		case <-s.closed:
			return
		case <-ctx.Done():
			_ = s.Close()
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !s.relevant(event) {
				continue
			}
			s.rebuild(ctx, e, spec)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.emit(Event{Kind: EventError, Err: err, Time: time.Now()})
		}
	}
}

func (s *watchSession) relevant(event fsnotify.Event) bool {
	// New directories join the watch; their contents feed later passes.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = watchRecursive(s.watcher, event.Name)
			return false
		}
	}
	return event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename)
}

func (s *watchSession) rebuild(ctx context.Context, e *Exec, spec *Spec) {
	s.emit(Event{Kind: EventBundleStart, Time: time.Now()})

	result, err := e.Build(ctx, spec)
	if err != nil {
		s.emit(Event{Kind: EventError, Err: err, Time: time.Now()})
		return
	}
	if spec.OutDir != "" {
		if _, err := result.Write(spec.OutDir); err != nil {
			s.emit(Event{Kind: EventError, Err: err, Time: time.Now()})
			return
		}
	}

	s.emit(Event{Kind: EventEnd, Time: time.Now()})
}

func (s *watchSession) emit(event Event) {
	select {
	case s.events <- event:
	case <-s.closed:
	}
}

func watchRecursive(watcher *fsnotify.Watcher, root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
