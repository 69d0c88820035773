package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ChangeKind classifies a middleware-source change.
type ChangeKind int

const (
	ChangeModified ChangeKind = iota
	ChangeAdded
	ChangeDirAdded
	ChangeRemoved
)

// String returns the string representation of the ChangeKind
func (k ChangeKind) String() string {
	switch k {
	case ChangeModified:
		return "modified"
	case ChangeAdded:
		return "added"
	case ChangeDirAdded:
		return "dir-added"
	case ChangeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Change is one middleware-source change notification. List is the full
// descriptor list as of a rescan performed after the change, never a diff.
type Change struct {
	Kind ChangeKind
	Path string
	List []Descriptor
}

// Subscription is a cancellable stream of middleware-source changes. The
// consumer owns it and must call Stop to release the underlying watch
// handle; the Events channel is closed once the watcher shuts down.
type Subscription struct {
	events   chan Change
	watcher  *fsnotify.Watcher
	stopping chan struct{}
	once     sync.Once
}

// Events returns the change stream.
func (s *Subscription) Events() <-chan Change {
	return s.events
}

// Stop closes the underlying filesystem watch handle. The Events channel
// is closed shortly after; pending events may still be delivered first.
func (s *Subscription) Stop() {
	s.once.Do(func() {
		close(s.stopping)
		_ = s.watcher.Close()
	})
}

// Subscribe watches dir (recursively) for handler-source changes and
// emits a Change with a fresh scan result for each relevant filesystem
// event. A dir that does not exist yet is not an error: the nearest
// existing ancestor is watched instead, and once dir appears it joins
// the watch and a dir-added Change is emitted. The subscription stops
// when ctx is cancelled or Stop is called.
func (s *Scanner) Subscribe(ctx context.Context, dir string) (*Subscription, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		events:   make(chan Change, 16),
		watcher:  watcher,
		stopping: make(chan struct{}),
	}

	ready, err := anchor(watcher, dir)
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			sub.Stop()
		case <-stopped:
		}
	}()

	go func() {
		defer close(stopped)
		defer close(sub.events)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				ready = s.handleEvent(sub, dir, event, ready)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn(ctx, err, "middleware watch error")
			}
		}
	}()

	return sub, nil
}

// anchor attaches the watch as close to dir as currently possible. When
// dir exists it is watched recursively and the subscription is ready;
// otherwise the nearest existing ancestor is watched so dir's later
// creation is still observed.
func anchor(watcher *fsnotify.Watcher, dir string) (bool, error) {
	if _, err := os.Stat(dir); err == nil {
		return true, addRecursive(watcher, dir)
	}
	if err := watcher.Add(nearestExisting(dir)); err != nil {
		return false, err
	}
	// dir may have appeared between the stat and the ancestor watch;
	// its creation event would be lost, so check again.
	if _, err := os.Stat(dir); err == nil {
		return true, addRecursive(watcher, dir)
	}
	return false, nil
}

// handleEvent processes one filesystem event and reports whether the
// subscription is (now) watching dir itself.
func (s *Scanner) handleEvent(sub *Subscription, dir string, event fsnotify.Event, ready bool) bool {
	if !ready {
		if !event.Op.Has(fsnotify.Create) {
			return false
		}
		armed, err := anchor(sub.watcher, dir)
		if err != nil {
			s.logger.Warn(context.Background(), err, "failed to watch middleware directory", "path", dir)
			return false
		}
		if armed {
			s.publish(sub, dir, ChangeDirAdded, dir)
		}
		return armed
	}

	// The anchor ancestors stay watched; their unrelated events are not
	// middleware changes.
	if !isWithin(dir, event.Name) {
		return true
	}

	kind, relevant := classify(event)
	if !relevant {
		return true
	}

	// New subdirectories must join the watch so handlers created inside
	// them later are still seen.
	if kind == ChangeDirAdded {
		_ = addRecursive(sub.watcher, event.Name)
	}

	s.publish(sub, dir, kind, event.Name)
	return true
}

// publish rescans dir and delivers the change. The send blocks until the
// consumer receives it or the subscription stops: a restart-triggering
// change must not be lost to a momentarily full buffer.
func (s *Scanner) publish(sub *Subscription, dir string, kind ChangeKind, path string) {
	list, err := s.Scan(dir)
	if err != nil {
		s.logger.Warn(context.Background(), err, "rescan after change failed", "path", path)
		return
	}

	select {
	case sub.events <- Change{Kind: kind, Path: path, List: list}:
	case <-sub.stopping:
	}
}

// classify maps a filesystem event to a ChangeKind, reporting false for
// events the orchestrator does not care about.
func classify(event fsnotify.Event) (ChangeKind, bool) {
	switch {
	case event.Op.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			return ChangeDirAdded, true
		}
		return ChangeAdded, IsHandlerFile(event.Name)
	case event.Op.Has(fsnotify.Write):
		return ChangeModified, IsHandlerFile(event.Name)
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		return ChangeRemoved, IsHandlerFile(event.Name)
	default:
		return ChangeModified, false
	}
}

// addRecursive watches root and every directory beneath it. A root that
// does not exist is not an error: there is simply nothing to watch yet.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
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

// nearestExisting walks up from path to the closest directory that
// exists on disk.
func nearestExisting(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

// isWithin reports whether child is parent or lies beneath it.
func isWithin(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
