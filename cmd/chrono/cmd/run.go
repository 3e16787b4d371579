package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/psantana5/chrono/internal/observe"
	"github.com/psantana5/chrono/pkg/metrics"
	"github.com/psantana5/chrono/pkg/stopwatch"
	"github.com/spf13/cobra"
)

var runDumpMetrics bool

var runCmd = &cobra.Command{
	Use:   "run -- <command> [args...]",
	Short: "Run a command and report how long it took",
	Long: `Runs a command with its output passed through, then reports the elapsed
time of the spawn and run phases measured on the monotonic clock.

Example:
  chrono run -- sleep 1
  chrono run -o json -- make build`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runDumpMetrics, "metrics", false, "print Prometheus metrics for the run to stderr")
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := newLogger().WithField("command", "run")

	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return err
	}

	runner := &observe.Runner{
		Options: []stopwatch.Option{stopwatch.WithAnomalyHook(recorder.AnomalyHook())},
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}

	res, err := runner.Run(cmd.Context(), args[0], args[1:])
	if err != nil {
		return err
	}
	for _, p := range res.Phases {
		recorder.ObservePhase(p.Name, p.Duration)
	}
	recorder.ObservePhase("total", res.Duration)

	logger.Debug("Command finished", map[string]interface{}{
		"pid":         res.PID,
		"exit_code":   res.ExitCode,
		"duration_ms": res.Duration.Milliseconds(),
	})

	if err := printRunResult(res); err != nil {
		return err
	}
	if runDumpMetrics {
		if err := metrics.Dump(reg, os.Stderr); err != nil {
			return err
		}
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s exited with status %d", res.Command, res.ExitCode)
	}
	return nil
}

func printRunResult(res *observe.Result) error {
	// results go to stderr so the command's own stdout stays clean
	if done, err := printStructured(os.Stderr, res); done {
		return err
	}

	table := tablewriter.NewWriter(os.Stderr)
	table.Header("Phase", "Elapsed")
	for _, p := range res.Phases {
		table.Append(p.Name, p.Duration.String())
	}
	table.Append("total", res.Duration.String())
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "\n%s %s | exit=%d | pid=%d\n",
		res.Command, strings.Join(res.Args, " "), res.ExitCode, res.PID)
	return nil
}
