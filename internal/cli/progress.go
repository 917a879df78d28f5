package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/agentic-planner/internal/model"
	"github.com/nhle/agentic-planner/internal/progress"
	"github.com/nhle/agentic-planner/internal/theme"
)

func addProgressCommand(parent *cobra.Command, rt *runtime) {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Record progress against tasks",
	}
	addProgressLogCmd(cmd, rt)
	addProgressUpdateCmd(cmd, rt)
	addProgressBulkCmd(cmd, rt)
	addProgressHistoryCmd(cmd, rt)
	parent.AddCommand(cmd)
}

func addProgressLogCmd(parent *cobra.Command, rt *runtime) {
	var (
		entry  progress.ManualEntry
		status string
		value  float64
	)

	cmd := &cobra.Command{
		Use:   "log <task-id>",
		Short: "Record a progress entry directly",
		Long: `Record a progress entry without analysis. With --value the task's
current value and status are updated as well.

Examples:
  planner progress log 42 --user u1 --status in_progress --value 120
  planner progress log 42 --user u1 --status completed --note "finished early"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry.TaskID = args[0]
			entry.Status = model.TaskStatus(status)
			if cmd.Flags().Changed("value") {
				entry.Value = &value
			}

			a, err := rt.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			saved, err := a.Progress.LogProgress(cmd.Context(), entry)
			if err != nil {
				return err
			}
			return rt.emit(cmd.OutOrStdout(), saved, func(w io.Writer) {
				fmt.Fprintln(w, theme.SuccessStyle.Render("✓ Progress logged successfully"))
				field(w, "Progress", saved.ID)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&entry.UserID, "user", "", "user id")
	f.StringVar(&status, "status", "", "status (pending|in_progress|completed|skipped)")
	f.Float64Var(&value, "value", 0, "progress value")
	f.StringVar(&entry.Note, "note", "", "note")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("status")
	parent.AddCommand(cmd)
}

func addProgressUpdateCmd(parent *cobra.Command, rt *runtime) {
	var userID string

	cmd := &cobra.Command{
		Use:   "update <task-id> <report>...",
		Short: "Apply a free-text report to one task",
		Long: `Interpret a free-text report about one task and apply the result.

Examples:
  planner progress update 42 --user u1 "read 15 more pages today"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			report := strings.Join(args[1:], " ")

			a, err := rt.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.Progress.AnalyzeAndUpdate(cmd.Context(), args[0], report, userID)
			if err := rt.emit(cmd.OutOrStdout(), res, func(w io.Writer) { printUpdateResult(w, res, a.Progress.Threshold()) }); err != nil {
				return err
			}
			return res.Err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")
	parent.AddCommand(cmd)
}

func printUpdateResult(w io.Writer, res progress.UpdateResult, threshold float64) {
	if res.Status != progress.StatusSuccess {
		fmt.Fprintln(w, theme.ErrorStyle.Render("✗ "+res.Error))
		return
	}
	fmt.Fprintln(w, theme.SuccessStyle.Render("✓ Task updated"))
	if an := res.Analysis; an != nil {
		field(w, "Value", formatNumber(an.NewValue))
		field(w, "Status", theme.StatusStyle(string(an.NewStatus)).Render(string(an.NewStatus)))
		field(w, "Confidence", theme.ConfidenceStyle(an.Confidence, threshold).Render(formatNumber(an.Confidence)))
		field(w, "Note", an.Note)
	}
	field(w, "Progress", res.ProgressID)
}

func addProgressBulkCmd(parent *cobra.Command, rt *runtime) {
	var userID string

	cmd := &cobra.Command{
		Use:   "bulk <report>...",
		Short: "Match a free-text report against all open tasks",
		Long: `Match a report against every open task in the user's active plans and
apply the matches whose confidence reaches progress.confidence_threshold.

Examples:
  planner progress bulk --user u1 "read 30 pages and ran 5k this morning"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report := strings.Join(args, " ")

			a, err := rt.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.Progress.BulkUpdate(cmd.Context(), userID, report)
			if err := rt.emit(cmd.OutOrStdout(), res, func(w io.Writer) { printBulkResult(w, res) }); err != nil {
				return err
			}
			return res.Err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")
	parent.AddCommand(cmd)
}

func printBulkResult(w io.Writer, res progress.BulkResult) {
	if res.Status != progress.StatusSuccess {
		fmt.Fprintln(w, theme.ErrorStyle.Render("✗ "+res.Error))
		if res.TotalUpdates > 0 {
			field(w, "Applied before failure", strings.Join(res.UpdatedTasks, ", "))
		}
		return
	}
	fmt.Fprintln(w, theme.SuccessStyle.Render(fmt.Sprintf("✓ %d task(s) updated", res.TotalUpdates)))
	for _, id := range res.UpdatedTasks {
		fmt.Fprintf(w, "  %s\n", id)
	}
	if res.Summary != "" {
		fmt.Fprintln(w, theme.PanelStyle.Render(res.Summary))
	}
}

func addProgressHistoryCmd(parent *cobra.Command, rt *runtime) {
	cmd := &cobra.Command{
		Use:   "history <task-id>",
		Short: "Show a task's progress log, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			logs, err := a.Progress.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if logs == nil {
				logs = []model.ProgressLog{}
			}
			return rt.emit(cmd.OutOrStdout(), logs, func(w io.Writer) {
				if len(logs) == 0 {
					fmt.Fprintln(w, theme.HelpStyle.Render("No progress recorded."))
					return
				}
				for _, l := range logs {
					value := "-"
					if l.Value != nil {
						value = formatNumber(*l.Value)
					}
					fmt.Fprintf(w, "%s  %s  %-8s %s\n",
						l.Date.Format(model.DateLayout),
						theme.StatusStyle(string(l.Status)).Render(fmt.Sprintf("%-11s", l.Status)),
						value, l.Note)
				}
			})
		},
	}
	parent.AddCommand(cmd)
}
