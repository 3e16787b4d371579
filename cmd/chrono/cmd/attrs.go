package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/psantana5/chrono/pkg/fsattr"
	"github.com/spf13/cobra"
)

var (
	attrsPolicyFile string
	attrsSet        []string
)

var attrsCmd = &cobra.Command{
	Use:   "attrs",
	Short: "Inspect file attribute policies",
}

var attrsCheckCmd = &cobra.Command{
	Use:   "check <directory>",
	Short: "Set attributes on a directory and verify what it keeps",
	Long: `Writes each attribute, one at a time, to a directory, reads it back and
compares the result with what the policy says a directory keeps. The
original attributes are restored after every round trip.

Without --set every attribute named by the policy is tried.

Example:
  chrono attrs check /tmp/scratch
  chrono attrs check --policy ./policies/windows.yaml --set readonly,hidden C:\scratch`,
	Args: cobra.ExactArgs(1),
	RunE: runAttrsCheck,
}

func init() {
	rootCmd.AddCommand(attrsCmd)
	attrsCmd.AddCommand(attrsCheckCmd)
	attrsCheckCmd.Flags().StringVar(&attrsPolicyFile, "policy", "", "policy YAML file (default: builtin policy for this platform)")
	attrsCheckCmd.Flags().StringSliceVar(&attrsSet, "set", nil, "attribute names to try, comma separated")
}

func loadAttrPolicy() (*fsattr.Policy, error) {
	if attrsPolicyFile != "" {
		return fsattr.LoadPolicy(attrsPolicyFile)
	}
	return fsattr.BuiltinPolicy(fsattr.DefaultPolicyName())
}

func runAttrsCheck(cmd *cobra.Command, args []string) error {
	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	policy, err := loadAttrPolicy()
	if err != nil {
		return err
	}

	names := attrsSet
	if len(names) == 0 {
		names = policy.Describe(policy.Mask())
	}

	svc := fsattr.NewOSService(policy)
	var results []fsattr.CheckResult
	failed := 0
	for _, name := range names {
		want, err := policy.Lookup(name)
		if err != nil {
			return err
		}
		res, err := fsattr.Check(svc, policy, dir, want)
		if err != nil {
			return err
		}
		if !res.OK {
			failed++
		}
		results = append(results, res)
	}

	if ok, err := printStructured(os.Stdout, results); ok {
		if err != nil {
			return err
		}
	} else {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Requested", "Expected", "Observed", "Result")
		for _, r := range results {
			result := "PASS"
			if !r.OK {
				result = "FAIL"
			}
			table.Append(
				strings.Join(policy.Describe(r.Requested), ","),
				strings.Join(policy.Describe(r.Expected), ","),
				strings.Join(policy.Describe(r.Observed), ","),
				result,
			)
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d attribute checks failed on %s (policy %s v%d)",
			failed, len(results), dir, policy.Platform, policy.Version)
	}
	return nil
}
