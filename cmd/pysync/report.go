package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pysync/pysync/pkg/installed"
)

var reportFlags struct {
	envRoot string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print every distribution currently installed in an environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportFlags.envRoot, "env", "", "environment root (site-packages) to introspect")
	reportCmd.MarkFlagRequired("env")
}

// runReport is a read-only counterpart to plan/sync: it reports what
// Executor.Apply's uninstall/link stages would see as the starting
// snapshot, without computing or applying a plan.
func runReport(cmd *cobra.Command) error {
	snapshot, err := (installed.FSIntrospector{}).SitePackages(cmd.Context(), reportFlags.envRoot)
	if err != nil {
		return errors.Wrap(err, "reading installed environment")
	}

	out := cmd.OutOrStdout()
	for _, inst := range snapshot {
		if inst.DirectURL != nil {
			fmt.Fprintf(out, "%s %s (%s)\n", inst.Name, inst.Version, inst.DirectURL.URL)
			continue
		}
		fmt.Fprintf(out, "%s %s\n", inst.Name, inst.Version)
	}
	return nil
}
