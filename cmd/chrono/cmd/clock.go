package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/psantana5/chrono/pkg/clock"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/spf13/cobra"
)

var clockSamples int

var clockCmd = &cobra.Command{
	Use:   "clock",
	Short: "Show the timestamp source in use",
	Long: `Prints the tick frequency, an estimate of the observable resolution and the
current tick of the monotonic clock, together with the host boot time.
Ticks are only comparable within one boot of one machine.`,
	Args: cobra.NoArgs,
	RunE: runClock,
}

func init() {
	rootCmd.AddCommand(clockCmd)
	clockCmd.Flags().IntVar(&clockSamples, "samples", 1000, "readings used to estimate resolution")
}

type clockInfo struct {
	Frequency     uint64        `json:"frequency_hz" yaml:"frequency_hz"`
	ResolutionTks int64         `json:"resolution_ticks" yaml:"resolution_ticks"`
	Resolution    time.Duration `json:"resolution_ns" yaml:"resolution_ns"`
	Now           int64         `json:"now_ticks" yaml:"now_ticks"`
	BootTime      time.Time     `json:"boot_time,omitempty" yaml:"boot_time,omitempty"`
	Uptime        time.Duration `json:"uptime_ns,omitempty" yaml:"uptime_ns,omitempty"`
}

func runClock(cmd *cobra.Command, args []string) error {
	logger := newLogger().WithField("command", "clock")
	src := clock.System()

	res := clock.Resolution(src, clockSamples)
	info := clockInfo{
		Frequency:     src.Frequency(),
		ResolutionTks: res,
		Resolution:    clock.ToDuration(res, src.Frequency()),
		Now:           int64(clock.GetTimestamp()),
	}

	// host data is informational only
	if boot, err := host.BootTimeWithContext(cmd.Context()); err == nil {
		info.BootTime = time.Unix(int64(boot), 0)
	} else {
		logger.Warn("Failed to read boot time", map[string]interface{}{"error": err.Error()})
	}
	if up, err := host.UptimeWithContext(cmd.Context()); err == nil {
		info.Uptime = time.Duration(up) * time.Second
	}

	if done, err := printStructured(os.Stdout, info); done {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")
	table.Append([]string{"Frequency", fmt.Sprintf("%d Hz", info.Frequency)})
	table.Append([]string{"Resolution", fmt.Sprintf("%d ticks (%s)", info.ResolutionTks, info.Resolution)})
	table.Append([]string{"Current tick", fmt.Sprintf("%d", info.Now)})
	if !info.BootTime.IsZero() {
		table.Append([]string{"Boot time", info.BootTime.Format(time.RFC3339)})
		table.Append([]string{"Uptime", info.Uptime.String()})
	}
	return table.Render()
}
