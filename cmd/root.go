package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Vigil - a parallel file-change observation engine",
	Long:  `Vigil polls globs of files for changes and streams extracted records to a callback, without relying on OS filesystem events.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
