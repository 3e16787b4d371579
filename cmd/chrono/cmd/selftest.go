package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/psantana5/chrono/internal/selftest"
	"github.com/psantana5/chrono/pkg/clock"
	"github.com/spf13/cobra"
)

var selftestUnit time.Duration

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Verify the system clock and stopwatch behave as expected",
	Long: `Runs the stopwatch scenarios (start/stop, reset, restart) against the
system monotonic clock with real sleeps and reports every check.`,
	Args: cobra.NoArgs,
	RunE: runSelftest,
}

func init() {
	rootCmd.AddCommand(selftestCmd)
	selftestCmd.Flags().DurationVar(&selftestUnit, "unit", time.Millisecond, "shortest sleep between observations")
}

func runSelftest(cmd *cobra.Command, args []string) error {
	logger := newLogger().WithField("command", "selftest")

	suite := &selftest.Suite{Source: clock.System(), Unit: selftestUnit}
	checks := suite.Run()
	passed := selftest.Passed(checks)

	logger.Debug("Selftest finished", map[string]interface{}{
		"checks": len(checks),
		"passed": passed,
	})

	if done, err := printStructured(os.Stdout, checks); done {
		if err != nil {
			return err
		}
	} else {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Scenario", "Check", "Result", "Detail")
		for _, c := range checks {
			result := "PASS"
			if !c.Passed {
				result = "FAIL"
			}
			table.Append(c.Scenario, c.Name, result, c.Detail)
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if !passed {
		return fmt.Errorf("selftest failed")
	}
	return nil
}
