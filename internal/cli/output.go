package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/nhle/agentic-planner/internal/model"
	"github.com/nhle/agentic-planner/internal/theme"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emit writes v as JSON, or calls text to render it for humans.
func (r *runtime) emit(w io.Writer, v any, text func(io.Writer)) error {
	if r.jsonOutput() {
		return writeJSON(w, v)
	}
	text(w)
	return nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s %s\n", theme.LabelStyle.Render(fmt.Sprintf("%-16s", label+":")), value)
}

func measure(current, target float64, unit string) string {
	s := formatNumber(current) + "/" + formatNumber(target)
	if unit != "" {
		s += " " + unit
	}
	return s
}

func printTasks(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, theme.HelpStyle.Render("No tasks."))
		return
	}
	for _, t := range tasks {
		status := theme.StatusStyle(string(t.Status)).Render(fmt.Sprintf("%-11s", t.Status))
		fmt.Fprintf(w, "%s  %s  %s  %s\n",
			status,
			t.TargetDate.Format(model.DateLayout),
			t.Title,
			theme.HelpStyle.Render(measure(t.CurrentValue, t.TargetValue, t.Unit)+"  "+t.ID))
	}
}

func printPlanStatus(w io.Writer, st *model.PlanStatus) {
	fmt.Fprintln(w, theme.HeaderStyle.Render(st.Title))
	field(w, "Plan", st.PlanID)
	field(w, "Completion", theme.ProgressBar(st.CompletionRate, 20))
	field(w, "Tasks", fmt.Sprintf("%d total, %d completed, %d pending", st.TotalTasks, st.CompletedTasks, st.PendingTasks))
	field(w, "Days remaining", strconv.Itoa(st.DaysRemaining))
}

func printPlans(w io.Writer, plans []model.PlanOverview) {
	if len(plans) == 0 {
		fmt.Fprintln(w, theme.HelpStyle.Render("No active plans."))
		return
	}
	for _, p := range plans {
		fmt.Fprintf(w, "%s  %s\n", theme.HeaderStyle.Render(p.Title), theme.HelpStyle.Render(string(p.PlanType)+"  "+p.ID))
		fmt.Fprintf(w, "  %s  %d/%d tasks, %d days left\n",
			theme.ProgressBar(p.CompletionRate, 20), p.CompletedTasks, p.TotalTasks, p.DaysRemaining)
	}
}
