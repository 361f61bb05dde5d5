// Package osa generates and runs OS automation scripts as scoped
// subprocesses. Scripts are written to uniquely named temp files and
// receive caller data strictly as positional arguments.
package osa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Runner executes one automation script with positional arguments and
// returns its trimmed stdout. Implementations must be safe for
// sequential reuse within a request.
type Runner interface {
	Run(ctx context.Context, script string, args ...string) (string, error)
}

// ScriptError reports a failed automation call: non-zero exit or
// timeout, with whatever stderr the interpreter produced.
type ScriptError struct {
	ExitCode int
	Stderr   string
	TimedOut bool
}

func (e *ScriptError) Error() string {
	if e.TimedOut {
		return "automation script timed out"
	}
	if e.Stderr != "" {
		return fmt.Sprintf("automation script exited %d: %s", e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("automation script exited %d", e.ExitCode)
}

// IsScriptError reports whether err is a ScriptError, unwrapping as needed.
func IsScriptError(err error) bool {
	var se *ScriptError
	return errors.As(err, &se)
}

// OSARunner runs scripts through the system automation interpreter.
type OSARunner struct {
	// Bin is the interpreter, normally "osascript".
	Bin string

	// Timeout bounds each subprocess. Zero means 30 seconds.
	Timeout time.Duration

	// TempDir receives script files; empty means os.TempDir.
	TempDir string
}

// maxCapturedOutput caps captured stdout/stderr per call.
const maxCapturedOutput = 256 * 1024

// Run writes script to a fresh uniquely named file, invokes the
// interpreter with the file path followed by args, and returns trimmed
// stdout. Non-zero exit or timeout yields a *ScriptError.
func (r *OSARunner) Run(ctx context.Context, script string, args ...string) (string, error) {
	if r.Bin == "" {
		return "", fmt.Errorf("osa: interpreter not configured")
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	dir := r.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("courier-%s.applescript", uuid.NewString()))
	if err := os.WriteFile(path, []byte(script), 0o600); err != nil {
		return "", fmt.Errorf("write script file: %w", err)
	}
	defer os.Remove(path)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.Bin, append([]string{path}, args...)...)
	var stdout, stderr cappedBuffer
	stdout.limit = maxCapturedOutput
	stderr.limit = maxCapturedOutput
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return "", &ScriptError{TimedOut: true, Stderr: strings.TrimSpace(stderr.String())}
		}
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return "", &ScriptError{
				ExitCode: ee.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return "", fmt.Errorf("run %s: %w", r.Bin, err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// cappedBuffer discards writes past its limit. Automation output is
// tiny in practice; the cap guards against a runaway interpreter.
type cappedBuffer struct {
	limit int
	buf   bytes.Buffer
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	remaining := b.limit - b.buf.Len()
	if remaining <= 0 {
		return n, nil
	}
	if len(p) > remaining {
		p = p[:remaining]
	}
	_, _ = b.buf.Write(p)
	return n, nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
