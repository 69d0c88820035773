package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildErrorMessage(t *testing.T) {
	cause := errors.New("permission denied")

	err := WrapPath(StagePrepare, "/tmp/dist", "failed to clear directory", cause)
	assert.Equal(t, "prepare: failed to clear directory (/tmp/dist): permission denied", err.Error())

	err = Wrap(StageBundle, "compile failed", cause)
	assert.Equal(t, "bundle: compile failed: permission denied", err.Error())

	err = &BuildError{Stage: StageWatch, Message: "session closed"}
	assert.Equal(t, "watch: session closed", err.Error())

	err = &BuildError{Stage: StageTypes, Path: "routes.d.ts", Message: "write failed"}
	assert.Equal(t, "types: write failed (routes.d.ts)", err.Error())
}

func TestBuildErrorUnwrap(t *testing.T) {
	cause := fs.ErrNotExist

	err := WrapPath(StageDocument, "document.html", "read failed", cause)
	require.ErrorIs(t, err, fs.ErrNotExist)

	wrapped := fmt.Errorf("build: %w", err)
	var be *BuildError
	require.ErrorAs(t, wrapped, &be)
	assert.Equal(t, StageDocument, be.Stage)
}

func TestIsStage(t *testing.T) {
	err := Wrap(StageBundle, "compile failed", errors.New("boom"))
	wrapped := fmt.Errorf("outer: %w", err)

	assert.True(t, IsStage(wrapped, StageBundle))
	assert.False(t, IsStage(wrapped, StagePrepare))
	assert.False(t, IsStage(errors.New("plain"), StageBundle))
}
