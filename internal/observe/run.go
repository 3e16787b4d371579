package observe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/psantana5/chrono/pkg/clock"
	"github.com/psantana5/chrono/pkg/stopwatch"
)

// Result is what one measured command run produced
type Result struct {
	Command  string        `json:"command" yaml:"command"`
	Args     []string      `json:"args,omitempty" yaml:"args,omitempty"`
	PID      int           `json:"pid" yaml:"pid"`
	ExitCode int           `json:"exit_code" yaml:"exit_code"`
	Duration time.Duration `json:"duration_ns" yaml:"duration_ns"`
	Phases   []Phase       `json:"phases" yaml:"phases"`
}

// Runner executes commands and measures them
type Runner struct {
	Source  clock.Source
	Options []stopwatch.Option
	Stdout  io.Writer
	Stderr  io.Writer
}

// Run spawns command and waits for it. A non-zero exit is reported in the
// result, not as an error; errors mean the command could not run at all.
func (r *Runner) Run(ctx context.Context, command string, args []string) (*Result, error) {
	timing := NewTiming(r.Source, r.Options...)

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	timing.Begin("spawn")
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", command, err)
	}

	timing.Begin("run")
	err := cmd.Wait()
	timing.Complete()

	res := &Result{
		Command:  command,
		Args:     args,
		PID:      cmd.Process.Pid,
		Duration: timing.Duration(),
		Phases:   timing.Phases(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return res, fmt.Errorf("failed waiting for %s: %w", command, err)
		}
		res.ExitCode = exitErr.ExitCode()
	}
	return res, nil
}
