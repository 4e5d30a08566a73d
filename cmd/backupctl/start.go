package main

import (
	"github.com/spf13/cobra"
)

var (
	startParallel bool
	startDryRun   bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Begin a backup run",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := postJSON("/api/start", map[string]bool{
			"parallel": startParallel,
			"dry_run":  startDryRun,
		})
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	},
}

func init() {
	startCmd.Flags().BoolVar(&startParallel, "parallel", true, "size the initial pool from the workload classifier instead of a single worker")
	startCmd.Flags().BoolVar(&startDryRun, "dry-run", false, "classify and estimate without transferring anything")
	rootCmd.AddCommand(startCmd)
}
