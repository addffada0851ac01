package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/taskpulse/taskpulse/internal/assess"
	"github.com/taskpulse/taskpulse/internal/clickup"
	"github.com/taskpulse/taskpulse/internal/config"
	"github.com/taskpulse/taskpulse/internal/history"
	"github.com/taskpulse/taskpulse/internal/llm"
	"github.com/taskpulse/taskpulse/internal/orchestration"
)

var (
	dryRun        bool
	maxTasks      int
	scoreStatuses []string
	scoreAssignee string
)

func newScoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Assess tasks and write scores back to ClickUp",
		Long: `Assess the configured task scope once.

Each eligible task is scored by the language model; the resulting speed and
quality values are written to the task's custom fields, an assessment
comment is posted, and the result is appended to the history ledger.
Use --dry-run to score without writing anything back.`,
		Args: cobra.NoArgs,
		RunE: scoreCommandE,
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Assess tasks but skip all writes")
	cmd.Flags().IntVar(&maxTasks, "max-tasks", 0, "Assess at most this many tasks (overrides CLICKUP_MAX_TASKS)")
	cmd.Flags().StringSliceVar(&scoreStatuses, "status", nil, "Only assess tasks with these statuses (overrides CLICKUP_TARGET_STATUSES)")
	cmd.Flags().StringVar(&scoreAssignee, "assignee", "", "Only assess tasks assigned to this member id")

	return cmd
}

func scoreCommandE(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if maxTasks > 0 {
		cfg.MaxTasks = maxTasks
	}
	if len(scoreStatuses) > 0 {
		cfg.TargetStatuses = scoreStatuses
	}

	source := clickup.NewClient(cfg.APIToken, cfg.ListID, cfg.TeamID)
	details := clickup.NewDetailCache(source)
	client := llm.NewChatClient(cfg.LMBaseURL, cfg.LMAPIKey, cfg.LMModel, cfg.LMTemperature, llm.DefaultRetryPolicy())
	engine := assess.NewEngine(client, details)
	store := history.NewStore(cfg.HistoryPath, cfg.HistoryLimit)

	runner := orchestration.NewRunner(source, details, engine, store, cfg, dryRun,
		orchestration.WithAssignee(scoreAssignee))
	summary, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Assessed %d of %d tasks (%d skipped, %d failed)\n",
		summary.Assessed, summary.Fetched, summary.Skipped, summary.Failed)

	if summary.Failed > 0 {
		return &TaskFailureError{
			Message: fmt.Sprintf("%d task(s) could not be assessed", summary.Failed),
		}
	}
	return nil
}
