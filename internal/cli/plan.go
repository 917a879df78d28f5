package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/model"
	"github.com/nhle/agentic-planner/internal/planner"
	"github.com/nhle/agentic-planner/internal/theme"
)

func addPlanCommand(parent *cobra.Command, rt *runtime) {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Create and inspect plans",
	}
	addPlanCreateCmd(cmd, rt)
	addPlanStatusCmd(cmd, rt)
	addPlanListCmd(cmd, rt)
	parent.AddCommand(cmd)
}

func addPlanCreateCmd(parent *cobra.Command, rt *runtime) {
	var (
		req        planner.CreatePlanRequest
		planType   string
		start, end string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a plan and generate its tasks",
		Long: `Store a new plan and run goal parsing and task planning for it.

Examples:
  planner plan create --user u1 --title Reading --type study \
    --description "Read 3 books in November" --start 2026-11-01 --end 2026-11-30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if req.StartDate, err = model.ParseDate(start); err != nil {
				return fmt.Errorf("%w: invalid --start %q", apperrors.ErrInvalidInput, start)
			}
			if req.EndDate, err = model.ParseDate(end); err != nil {
				return fmt.Errorf("%w: invalid --end %q", apperrors.ErrInvalidInput, end)
			}
			req.PlanType = model.PlanType(planType)

			a, err := rt.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Plans.CreatePlan(cmd.Context(), req)
			if res != nil {
				if emitErr := rt.emit(cmd.OutOrStdout(), res, func(w io.Writer) { printCreateResult(w, res, err) }); emitErr != nil {
					return emitErr
				}
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.UserID, "user", "", "owning user id")
	f.StringVar(&req.Title, "title", "", "plan title")
	f.StringVar(&planType, "type", string(model.PlanTypeLifeTasks), "plan type ("+planTypeNames()+")")
	f.StringVar(&req.Description, "description", "", "free-text goal")
	f.StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	f.StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	for _, name := range []string{"user", "title", "description", "start", "end"} {
		_ = cmd.MarkFlagRequired(name)
	}
	parent.AddCommand(cmd)
}

func printCreateResult(w io.Writer, res *planner.CreatePlanResult, err error) {
	if err != nil {
		fmt.Fprintln(w, theme.ErrorStyle.Render("✗ "+res.Message))
		field(w, "Plan", res.PlanID)
		return
	}
	fmt.Fprintln(w, theme.SuccessStyle.Render("✓ "+res.Message))
	field(w, "Plan", res.PlanID)
	field(w, "Tasks created", fmt.Sprint(res.TasksCreated))
	if res.PlanSummary != "" {
		fmt.Fprintln(w, theme.PanelStyle.Render(res.PlanSummary))
	}
}

func addPlanStatusCmd(parent *cobra.Command, rt *runtime) {
	cmd := &cobra.Command{
		Use:   "status <plan-id>",
		Short: "Show completion statistics for a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.Plans.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return rt.emit(cmd.OutOrStdout(), st, func(w io.Writer) { printPlanStatus(w, st) })
		},
	}
	parent.AddCommand(cmd)
}

func addPlanListCmd(parent *cobra.Command, rt *runtime) {
	var userID string

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List a user's active plans, newest first",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			plans, err := a.Plans.UserPlans(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return rt.emit(cmd.OutOrStdout(), plans, func(w io.Writer) { printPlans(w, plans) })
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")
	parent.AddCommand(cmd)
}

func planTypeNames() string {
	types := model.PlanTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, "|")
}
