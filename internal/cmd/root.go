package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "worklog",
	Short: "activity log and Obsidian note sync",
	Long: `worklog - local activity log and Obsidian note sync
  - worklog sync   → import activity and refresh vault notes
  - worklog focus  → see when and how you actually work`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
