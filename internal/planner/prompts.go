package planner

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/agentic-planner/internal/model"
)

// Sampling temperatures per stage. Goal parsing is near-deterministic;
// planning gets a little room to vary task wording.
const (
	goalParserTemperature    = 0.1
	planGeneratorTemperature = 0.3
)

func goalParserInstruction(planType model.PlanType) string {
	var sb strings.Builder
	sb.WriteString("You are a goal parsing agent. Parse the user's goal description into structured data.\n\n")
	sb.WriteString("Return a JSON object without markdown fences with the following structure:\n")
	sb.WriteString(`{
  "parsed_goal": {
    "main_objective": "clear objective statement",
    "target_metrics": [{"metric": "name", "target": "value", "unit": "unit"}],
    "timeline": "duration or specific dates",
    "key_milestones": ["milestone1", "milestone2"],
    "success_criteria": "how to measure success"
  }
}`)
	sb.WriteString("\n\nPlan type: ")
	sb.WriteString(string(planType))
	return sb.String()
}

func goalParserMessage(description string) string {
	return "Goal: " + description
}

func planGeneratorInstruction(planType model.PlanType, start, end time.Time) string {
	var sb strings.Builder
	sb.WriteString("You are a planning agent. Create a detailed task breakdown for the given goal.\n\n")
	sb.WriteString("Based on the parsed goal, create a list of specific, actionable tasks with the following structure:\n")
	sb.WriteString(`{
  "tasks": [
    {
      "title": "Task title",
      "description": "Detailed description",
      "target_date": "YYYY-MM-DD",
      "unit": "measurement unit (pages, kg, USD, etc.)",
      "target_value": 0.0,
      "priority": "high|medium|low"
    }
  ],
  "plan_summary": "Overall plan summary"
}`)
	fmt.Fprintf(&sb, "\n\nPlan type: %s\nDuration: %s to %s\n\n",
		planType, start.Format(model.DateLayout), end.Format(model.DateLayout))
	sb.WriteString("Make tasks specific, measurable, and time-bound. Distribute them evenly across the timeline.\n")
	sb.WriteString("Return JSON without markdown fences.")
	return sb.String()
}

func planGeneratorMessage(goal model.Goal) (string, error) {
	data, err := json.MarshalIndent(goal, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding parsed goal: %w", err)
	}
	return "Parsed Goal: " + string(data), nil
}
