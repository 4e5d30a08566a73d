package main

import "github.com/spf13/cobra"

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current session snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := getJSON("/api/snapshot")
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
