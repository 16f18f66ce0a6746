// Package cmd implements the herbwise command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "herbwise",
	Short: "HerbWise - a local web front end for the herb assistant",
	Long: `HerbWise serves a browser chat interface for the herb-identification
assistant. Conversations are persisted on disk in an obfuscated local
store so closing the browser never loses a chat.

Running herbwise without a subcommand starts the web server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
