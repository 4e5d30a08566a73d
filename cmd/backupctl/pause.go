package main

import "github.com/spf13/cobra"

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the current run without killing in-flight sync children",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := postJSON("/api/pause", nil)
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pauseCmd)
}
