package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/glassfocus/core/cmd/glassfocus/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "glassfocus",
		Short: "GlassFocus productivity server",
		Long:  `GlassFocus is a local-first productivity tracker combining daily tasks, a reading list, streak analytics and an offline application shell.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewRolloverCommand())
	rootCmd.AddCommand(commands.NewStatsCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
