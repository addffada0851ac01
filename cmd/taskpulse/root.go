package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskpulse",
		Short: "TaskPulse - AI assessment agent for ClickUp tasks",
		Long: `TaskPulse scores completed ClickUp tasks with a language model.

It fetches tasks from a list or team, asks the model for speed and quality
scores grounded in the performer's history, writes the scores back to the
task's custom fields, and keeps a markdown ledger of every assessment. It
can also produce per-employee daily reports.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newScoreCommand())
	cmd.AddCommand(newReportCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
