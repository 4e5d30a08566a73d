package main

import "github.com/spf13/cobra"

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Drain the worker pool and stop the current run",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := postJSON("/api/stop", nil)
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
