// Package scripts runs the Python collaborators (risk scoring, lifestyle
// risk, literature retrieval and PDF rendering) as child processes.
package scripts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrNoOutput is returned when a script exits cleanly without printing.
var ErrNoOutput = errors.New("scripts: no output")

const waitDelay = 2 * time.Second

// Runner executes scripts with one interpreter from one working directory.
// Arguments are passed directly to the process, never through a shell.
type Runner struct {
	Python  string
	Dir     string
	Timeout time.Duration
}

// Run executes script with args and returns its stdout.
func (r *Runner) Run(ctx context.Context, script string, args ...string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	python := r.Python
	if python == "" {
		python = "python3"
	}
	cmd := exec.CommandContext(ctx, python, append([]string{script}, args...)...)
	cmd.Dir = r.Dir
	// grandchildren may hold stdout open after the script is killed
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s: %w", script, ctx.Err())
		}
		return "", fmt.Errorf("%s: %w: %s", script, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// RunJSON executes script and decodes the last non-empty stdout line into v.
// Earlier lines are progress output.
func (r *Runner) RunJSON(ctx context.Context, v any, script string, args ...string) error {
	out, err := r.Run(ctx, script, args...)
	if err != nil {
		return err
	}
	line := lastLine(out)
	if line == "" {
		return fmt.Errorf("%s: %w", script, ErrNoOutput)
	}
	if err := json.Unmarshal([]byte(line), v); err != nil {
		return fmt.Errorf("%s: decode result: %w", script, err)
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
