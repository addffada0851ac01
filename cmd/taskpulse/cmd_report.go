package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/taskpulse/taskpulse/internal/clickup"
	"github.com/taskpulse/taskpulse/internal/config"
	"github.com/taskpulse/taskpulse/internal/reporting"
)

var (
	reportDate     string
	reportStatuses []string
	reportAssignee string
	reportOutput   string
)

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate per-employee daily reports",
		Long: `Generate a daily report for each employee.

Tasks are grouped by assignee for one local day in the configured report
timezone and classified as completed, rescheduled, or overdue. Reports are
printed to stdout, or written to a file with --output.`,
		Args: cobra.NoArgs,
		RunE: reportCommandE,
	}

	cmd.Flags().StringVar(&reportDate, "date", "", "Report day in YYYY-MM-DD (default: today in the report timezone)")
	cmd.Flags().StringSliceVar(&reportStatuses, "status", nil, "Only include tasks with these statuses (can be repeated)")
	cmd.Flags().StringVar(&reportAssignee, "assignee", "", "Only include tasks assigned to this member id")
	cmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write the report to this file instead of stdout")

	return cmd
}

func reportCommandE(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var targetDate *time.Time
	if reportDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", reportDate, cfg.ReportLocation())
		if err != nil {
			return fmt.Errorf("cannot parse --date %q, expected YYYY-MM-DD", reportDate)
		}
		targetDate = &parsed
	}

	source := clickup.NewClient(cfg.APIToken, cfg.ListID, cfg.TeamID)
	generator := reporting.NewGenerator(source, cfg)

	reports, err := generator.Generate(cmd.Context(), targetDate, reportStatuses, reportAssignee)
	if err != nil {
		return err
	}

	if reportOutput != "" {
		if err := reporting.WriteFile(reportOutput, reports); err != nil {
			return err
		}
		fmt.Printf("Wrote %d report(s) to %s\n", len(reports), reportOutput)
		return nil
	}

	fmt.Print(reporting.Render(reports))
	return nil
}
