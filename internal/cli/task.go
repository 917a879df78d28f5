package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/nhle/agentic-planner/internal/model"
	"github.com/nhle/agentic-planner/internal/progress"
)

func addTaskCommand(parent *cobra.Command, rt *runtime) {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "List and edit tasks",
	}
	addTaskListCmd(cmd, rt)
	addTaskEditCmd(cmd, rt)
	parent.AddCommand(cmd)
}

func addTaskListCmd(parent *cobra.Command, rt *runtime) {
	var planID, userID string

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List the tasks of a plan or of all a user's plans",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var tasks []model.Task
			if planID != "" {
				tasks, err = a.Plans.PlanTasks(cmd.Context(), planID)
			} else {
				tasks, err = a.Plans.UserTasks(cmd.Context(), userID)
			}
			if err != nil {
				return err
			}
			if tasks == nil {
				tasks = []model.Task{}
			}
			return rt.emit(cmd.OutOrStdout(), tasks, func(w io.Writer) { printTasks(w, tasks) })
		},
	}
	cmd.Flags().StringVar(&planID, "plan", "", "plan id")
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.MarkFlagsOneRequired("plan", "user")
	cmd.MarkFlagsMutuallyExclusive("plan", "user")
	parent.AddCommand(cmd)
}

func addTaskEditCmd(parent *cobra.Command, rt *runtime) {
	var (
		status string
		value  float64
		memo   string
	)

	cmd := &cobra.Command{
		Use:   "edit <task-id>",
		Short: "Set a task's status, current value or memo",
		Long: `Edit a task directly, without writing a progress log.

Examples:
  planner task edit 42 --status completed
  planner task edit 42 --value 120 --memo "ahead of schedule"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var edit progress.TaskEdit
			if cmd.Flags().Changed("status") {
				s := model.TaskStatus(status)
				edit.Status = &s
			}
			if cmd.Flags().Changed("value") {
				edit.CurrentValue = &value
			}
			if cmd.Flags().Changed("memo") {
				edit.Memo = &memo
			}

			a, err := rt.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			task, err := a.Progress.EditTask(cmd.Context(), args[0], edit)
			if err != nil {
				return err
			}
			return rt.emit(cmd.OutOrStdout(), task, func(w io.Writer) { printTasks(w, []model.Task{*task}) })
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status (pending|in_progress|completed|skipped)")
	cmd.Flags().Float64Var(&value, "value", 0, "new current value")
	cmd.Flags().StringVar(&memo, "memo", "", "memo text")
	parent.AddCommand(cmd)
}
