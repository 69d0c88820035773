// Package bundler defines the interface the orchestrator drives the
// module bundler through, plus an implementation backed by an external
// bundler command.
//
// The orchestrator never sees the bundler's dependency-graph resolution
// or transform pipeline; it configures a Spec, runs either a one-shot
// Build or a continuous Watch session, and reacts to the session's
// lifecycle events.
package bundler

import (
	"context"
	"time"
)

// Spec is the bundle specification handed to the bundler. The
// build:before hook may adjust it before compilation starts.
type Spec struct {
	// Entry is the absolute path of the entry module.
	Entry string
	// EntryName is the filename the produced entry module is written as.
	EntryName string
	// WorkDir is the directory whose sources feed the bundle. Watch
	// sessions watch it for changes.
	WorkDir string
	// OutDir is where watch sessions write each successful bundle.
	OutDir string
	// Command and Args describe the external bundler invocation. Args may
	// contain the placeholders {entry} and {out}.
	Command string
	Args    []string
	// Env is appended to the inherited process environment.
	Env []string
}

// Result is a writable build result produced by a one-shot compile.
type Result struct {
	EntryName string
	Data      []byte
	Duration  time.Duration
}

// EventKind identifies a watch-session lifecycle event.
type EventKind int

const (
	// EventStart signals the session (re)initialized.
	EventStart EventKind = iota
	// EventBundleStart signals a bundling pass began.
	EventBundleStart
	// EventEnd signals a bundling pass completed successfully.
	EventEnd
	// EventError signals a bundling pass failed. The session stays alive.
	EventError
)

// String returns the string representation of the EventKind
func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventBundleStart:
		return "bundle-start"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one watch-session lifecycle event.
type Event struct {
	Kind EventKind
	Err  error
	Time time.Time
}

// Session wraps one active bundler watch subscription. At most one
// session may be alive at a time; Close releases its filesystem watch
// handle and must complete before a new session is opened.
type Session interface {
	Events() <-chan Event
	Close() error
}

// Bundler is the compile interface consumed by the orchestrator.
type Bundler interface {
	// Build runs a one-shot compile of spec.
	Build(ctx context.Context, spec *Spec) (*Result, error)
	// Watch opens a continuous watch session against spec.
	Watch(ctx context.Context, spec *Spec) (Session, error)
}
