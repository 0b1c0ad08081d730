// Package toolchain wraps the external build tools (gradle, xcodebuild, adb,
// xcrun, the JS bundler) behind a small command-execution interface so the
// rest of the code can be tested without the native toolchains installed.
package toolchain

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Runner abstracts external tool invocation for testability.
type Runner interface {
	// Run executes name with args in dir and returns captured output.
	// A non-zero exit status is reported through exitCode, not err; err is
	// reserved for failures to start or wait on the process.
	Run(ctx context.Context, dir string, name string, args ...string) (stdout string, stderr string, exitCode int, err error)

	// Stream executes name with args in dir, forwarding output to the given
	// writers as it is produced. Used for long-running tools (bundler,
	// compiler) where the user should see progress live.
	Stream(ctx context.Context, dir string, out, errOut io.Writer, name string, args ...string) (exitCode int, err error)
}

// ExecRunner implements Runner by shelling out.
type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (e *ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec %s: %w", name, err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

func (e *ExecRunner) Stream(ctx context.Context, dir string, out, errOut io.Writer, name string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = errOut

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("exec %s: %w", name, err)
	}
	return 0, nil
}

// ExitError describes a tool that ran but returned a non-zero status.
type ExitError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s %s exited with status %d", e.Tool, strings.Join(e.Args, " "), e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + lastLine(s)
	}
	return msg
}

// Check runs a tool and converts a non-zero exit status into an *ExitError.
func Check(ctx context.Context, r Runner, dir string, name string, args ...string) (string, error) {
	stdout, stderr, code, err := r.Run(ctx, dir, name, args...)
	if err != nil {
		return stdout, err
	}
	if code != 0 {
		return stdout, &ExitError{Tool: name, Args: args, ExitCode: code, Stderr: stderr}
	}
	return stdout, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
