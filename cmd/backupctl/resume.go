package main

import "github.com/spf13/cobra"

// resumeCmd is an alias for start: the control plane's Start transition
// accepts both Stopped->Running and Paused->Running, so resuming a paused
// run is the same call as beginning one.
var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused run",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := postJSON("/api/start", map[string]bool{"parallel": true, "dry_run": false})
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}
