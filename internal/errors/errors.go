// Package errors defines typed errors for the build orchestrator.
//
// Every pipeline stage wraps its failures in a BuildError carrying the
// stage name and the path it was operating on, so callers can log and
// classify failures without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Stage identifies the pipeline stage an error originated from.
type Stage string

const (
	StagePrepare  Stage = "prepare"
	StageAssets   Stage = "assets"
	StageDocument Stage = "document"
	StageTypes    Stage = "types"
	StageBundle   Stage = "bundle"
	StageManifest Stage = "manifest"
	StageWatch    Stage = "watch"
	StageScan     Stage = "scan"
)

// BuildError represents a failure in one stage of the build pipeline.
type BuildError struct {
	Stage   Stage
	Path    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *BuildError) Error() string {
	if e.Path != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s (%s): %v", e.Stage, e.Message, e.Path, e.Err)
		}
		return fmt.Sprintf("%s: %s (%s)", e.Stage, e.Message, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// Unwrap returns the underlying cause
func (e *BuildError) Unwrap() error {
	return e.Err
}

// Wrap creates a BuildError for the given stage.
func Wrap(stage Stage, message string, err error) *BuildError {
	return &BuildError{Stage: stage, Message: message, Err: err}
}

// WrapPath creates a BuildError carrying the path the stage was working on.
func WrapPath(stage Stage, path, message string, err error) *BuildError {
	return &BuildError{Stage: stage, Path: path, Message: message, Err: err}
}

// IsStage reports whether err is a BuildError from the given stage.
func IsStage(err error, stage Stage) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Stage == stage
	}
	return false
}
