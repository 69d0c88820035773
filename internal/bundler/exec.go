package bundler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Filipo11021/nitro/internal/logging"
)

// Exec drives an external bundler command. The command is expected to
// print the bundled entry module on stdout (esbuild-style piping);
// diagnostics go to stderr.
type Exec struct {
	logger logging.Logger
}

// NewExec creates an exec-backed bundler.
func NewExec(logger logging.Logger) *Exec {
	if logger == nil {
		logger = logging.NewLogger(nil)
	}
	return &Exec{logger: logger.WithComponent("bundler")}
}

// Build implements Bundler.
func (e *Exec) Build(ctx context.Context, spec *Spec) (*Result, error) {
	if spec.Command == "" {
		return nil, fmt.Errorf("no bundler command configured")
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, spec.Command, ExpandArgs(spec.Args, spec)...)
	cmd.Dir = spec.WorkDir
	cmd.Env = append(os.Environ(), spec.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug(ctx, "invoking bundler", "command", spec.Command, "entry", spec.Entry)

	if err := cmd.Run(); err != nil {
		diag := strings.TrimSpace(stderr.String())
		if diag != "" {
			return nil, fmt.Errorf("bundler command failed: %w: %s", err, diag)
		}
		return nil, fmt.Errorf("bundler command failed: %w", err)
	}

	return &Result{
		EntryName: spec.EntryName,
		Data:      stdout.Bytes(),
		Duration:  time.Since(start),
	}, nil
}

// Write persists the bundled entry module into dir and returns its path.
func (r *Result) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create bundle output directory: %w", err)
	}
	path := filepath.Join(dir, r.EntryName)
	if err := os.WriteFile(path, r.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write bundle: %w", err)
	}
	return path, nil
}

// ExpandArgs substitutes the {entry} and {out} placeholders in args.
func ExpandArgs(args []string, spec *Spec) []string {
	expanded := make([]string, len(args))
	for i, arg := range args {
		arg = strings.ReplaceAll(arg, "{entry}", spec.Entry)
		arg = strings.ReplaceAll(arg, "{out}", spec.OutDir)
		expanded[i] = arg
	}
	return expanded
}
