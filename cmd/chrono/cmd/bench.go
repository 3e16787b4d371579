package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/psantana5/chrono/internal/observe"
	"github.com/psantana5/chrono/internal/report"
	"github.com/psantana5/chrono/pkg/metrics"
	"github.com/psantana5/chrono/pkg/stopwatch"
	"github.com/spf13/cobra"
)

var (
	benchRuns     int
	benchWarmup   int
	benchQuiet    bool
	benchMetrics  bool
	benchFailFast bool
)

var benchCmd = &cobra.Command{
	Use:   "bench -- <command> [args...]",
	Short: "Run a command repeatedly and summarize the timings",
	Long: `Runs a command several times and reports min, median, p95, max and mean
elapsed time. Warmup runs are executed first and not counted.

Example:
  chrono bench -n 20 -- ./bin/tool --dry-run
  chrono bench -n 5 --warmup 1 -o yaml -- curl -s http://localhost:8090/health`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().IntVarP(&benchRuns, "runs", "n", 10, "number of measured runs")
	benchCmd.Flags().IntVar(&benchWarmup, "warmup", 0, "number of unmeasured warmup runs")
	benchCmd.Flags().BoolVarP(&benchQuiet, "quiet", "q", true, "discard the command's output")
	benchCmd.Flags().BoolVar(&benchMetrics, "metrics", false, "print Prometheus metrics to stderr when done")
	benchCmd.Flags().BoolVar(&benchFailFast, "fail-fast", false, "stop at the first non-zero exit")
}

type benchReport struct {
	Command  string         `json:"command" yaml:"command"`
	Summary  report.Summary `json:"summary" yaml:"summary"`
	Failures int            `json:"failures" yaml:"failures"`
	Wall     time.Duration  `json:"wall_ns" yaml:"wall_ns"`
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchRuns < 1 {
		return fmt.Errorf("--runs must be at least 1, got %d", benchRuns)
	}
	logger := newLogger().WithField("command", "bench")

	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stderr
	if benchQuiet {
		out = io.Discard
	}
	runner := &observe.Runner{
		Options: []stopwatch.Option{stopwatch.WithAnomalyHook(recorder.AnomalyHook())},
		Stdout:  out,
		Stderr:  out,
	}

	for i := 0; i < benchWarmup; i++ {
		if _, err := runner.Run(cmd.Context(), args[0], args[1:]); err != nil {
			return err
		}
	}

	wall := stopwatch.StartNew(nil)
	samples := make([]time.Duration, 0, benchRuns)
	failures := 0
	for i := 0; i < benchRuns; i++ {
		res, err := runner.Run(cmd.Context(), args[0], args[1:])
		if err != nil {
			return err
		}
		samples = append(samples, res.Duration)
		recorder.ObservePhase("run", res.Duration)

		if res.ExitCode != 0 {
			failures++
			logger.Warn("Run exited non-zero", map[string]interface{}{
				"run":       i + 1,
				"exit_code": res.ExitCode,
			})
			if benchFailFast {
				break
			}
		}
	}
	wall.Stop()

	rep := benchReport{
		Command:  strings.Join(args, " "),
		Summary:  report.Summarize(args[0], samples),
		Failures: failures,
		Wall:     wall.Elapsed(),
	}
	logger.Debug(rep.Summary.String())

	if err := printBenchReport(rep); err != nil {
		return err
	}
	if benchMetrics {
		if err := metrics.Dump(reg, os.Stderr); err != nil {
			return err
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d runs failed", failures, len(samples))
	}
	return nil
}

func printBenchReport(rep benchReport) error {
	if done, err := printStructured(os.Stdout, rep); done {
		return err
	}

	s := rep.Summary
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Runs", "Min", "Median", "P95", "Max", "Mean", "StdDev")
	table.Append(
		fmt.Sprintf("%d", s.Count),
		s.Min.String(),
		s.Median.String(),
		s.P95.String(),
		s.Max.String(),
		s.Mean.String(),
		s.StdDev.String(),
	)
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Printf("\n%s | failures=%d | wall=%s\n", rep.Command, rep.Failures, rep.Wall)
	return nil
}
