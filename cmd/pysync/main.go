// Command pysync is the CLI front-end for the sync pipeline: it
// aggregates requirement sources, plans an installation against a
// target environment, and optionally executes that plan.
package main

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pysync",
	Short: "Synchronize a Python environment with a declared requirement set",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
