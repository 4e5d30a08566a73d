package main

import "github.com/spf13/cobra"

var scanRoot string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Populate the session's directory list from a home-directory root",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := postJSON("/api/scan", map[string]string{"root": scanRoot})
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanRoot, "root", "", "home-directory root to scan (required)")
	scanCmd.MarkFlagRequired("root")
	rootCmd.AddCommand(scanCmd)
}
