// Package shellexec implements workflow.ScriptExecutor for bash scripts: a
// login shell spawned per script, streamed line-buffered combined
// stdout/stderr output, process-group cancellation, and retried transient
// spawn failures.
package shellexec

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rxtech-lab/rxclips-core/retry"
	"github.com/rxtech-lab/rxclips-core/workflow"
)

// tailBufferBytes is how much trailing combined output is buffered while a
// script runs; CommandFailed's message keeps the last 20 lines of it.
const tailBufferBytes = 4096

// transientPatterns are substrings of a spawn error that indicate the
// failure is worth retrying: short-lived resource exhaustion rather than a
// malformed command.
var transientPatterns = []string{
	"resource temporarily unavailable",
	"cannot allocate memory",
	"too many open files",
	"text file busy",
	"fork/exec",
}

// isTransient reports whether err looks like a transient process-spawn
// failure rather than the script itself failing.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// Executor runs ScriptBash scripts.
type Executor struct {
	Logger *slog.Logger
}

// New returns a ready-to-use Executor.
func New(opts ...Option) *Executor {
	e := &Executor{Logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for spawn retry diagnostics.
var WithLogger = func(l *slog.Logger) Option {
	return func(e *Executor) { e.Logger = l }
}

// Execute implements workflow.ScriptExecutor.
func (e *Executor) Execute(ctx context.Context, script *workflow.Script, ec workflow.ExecContext, events chan<- workflow.ResultEvent) error {
	if script.Kind != workflow.ScriptBash {
		return workflow.NewUnsupportedScriptTypeError(script.Kind)
	}

	var tail bytes.Buffer
	var exitCode int

	spawn := func(ctx context.Context) error {
		tail.Reset()
		cmd := exec.CommandContext(ctx, "sh", "-lc", script.Command)
		cmd.Dir = ec.WorkingDir
		cmd.Env = overlayEnv(os.Environ(), ec.Environment)
		setupProcessGroup(cmd)
		cmd.Cancel = func() error {
			_ = killProcessGroup(cmd.Process.Pid)
			return cmd.Process.Kill()
		}

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return err
		}
		cmd.Stderr = cmd.Stdout

		if err := cmd.Start(); err != nil {
			return err
		}

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			tail.WriteString(line)
			tail.WriteByte('\n')
			if tail.Len() > tailBufferBytes {
				trimmed := tail.Bytes()[tail.Len()-tailBufferBytes:]
				tail.Reset()
				tail.Write(trimmed)
			}

			select {
			case events <- workflow.ResultEvent{Kind: workflow.EventShellOutput, ScriptID: script.ID, Output: line, Time: time.Now()}:
			case <-ctx.Done():
				_ = killProcessGroup(cmd.Process.Pid)
				return ctx.Err()
			}
		}

		waitErr := cmd.Wait()
		exitCode = cmd.ProcessState.ExitCode()
		if waitErr != nil && exitCode <= 0 {
			// process never produced an exit code: spawn-level failure
			return waitErr
		}
		return nil
	}

	retryable := func(err error) bool {
		if !isTransient(err) {
			return false
		}
		e.Logger.Warn("retrying shell spawn", "script", script.ID, "error", err)
		return true
	}
	err := retry.Do(ctx, spawn, retry.ShellSpawnOptions(retryable)...)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return workflow.NewProcessFailedError("spawning shell", err)
	}

	if exitCode != 0 {
		return workflow.NewCommandFailedError(exitCode, lastLines(tail.String(), 20))
	}
	return nil
}

func overlayEnv(base []string, overlay map[string]string) []string {
	out := append([]string(nil), base...)
	for k, v := range overlay {
		out = append(out, k+"="+v)
	}
	return out
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
