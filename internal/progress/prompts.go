package progress

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nhle/agentic-planner/internal/model"
)

const analysisTemperature = 0.2

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func analysisInstruction(task model.Task) string {
	var sb strings.Builder
	sb.WriteString("You are a progress analysis agent. Analyze the user's input about their task progress and determine:\n")
	sb.WriteString("1. What progress value should be recorded\n")
	sb.WriteString("2. What status the task should have\n")
	sb.WriteString("3. An appropriate note summarizing the progress\n\n")
	sb.WriteString("Return JSON without markdown fences:\n")
	sb.WriteString(`{
  "progress_analysis": {
    "new_value": 0.0,
    "new_status": "pending|in_progress|completed|skipped",
    "confidence": 0.9,
    "note": "Summary of progress update",
    "reasoning": "Why this update was made"
  }
}`)
	sb.WriteString("\n\nTask Details:\n")
	fmt.Fprintf(&sb, "- Title: %s\n", task.Title)
	fmt.Fprintf(&sb, "- Description: %s\n", orNA(task.Description))
	fmt.Fprintf(&sb, "- Unit: %s\n", orNA(task.Unit))
	fmt.Fprintf(&sb, "- Target Value: %s\n", formatNumber(task.TargetValue))
	fmt.Fprintf(&sb, "- Current Value: %s\n", formatNumber(task.CurrentValue))
	fmt.Fprintf(&sb, "- Current Status: %s", task.Status)
	return sb.String()
}

func analysisMessage(report string) string {
	return "User Progress Update: " + report
}

// taskContextLine renders one candidate task for the bulk matcher.
func taskContextLine(t model.Task) string {
	line := fmt.Sprintf("- Task ID: %s, Title: %s, Current: %s, Target: %s",
		t.ID, t.Title, formatNumber(t.CurrentValue), formatNumber(t.TargetValue))
	if t.Unit != "" {
		line += " " + t.Unit
	}
	return line
}

func bulkInstruction(tasks []model.Task) string {
	var sb strings.Builder
	sb.WriteString("You are a bulk progress analyzer. Match the user's progress updates to their active tasks and suggest updates.\n")
	sb.WriteString("Only use task IDs from the list below. Give each match a confidence between 0 and 1.\n\n")
	sb.WriteString("Return JSON without markdown fences:\n")
	sb.WriteString(`{
  "bulk_updates": [
    {
      "task_id": "task_id_here",
      "new_value": 0.0,
      "new_status": "pending|in_progress|completed|skipped",
      "note": "What was accomplished",
      "confidence": 0.9
    }
  ],
  "summary": "Overall summary of updates"
}`)
	sb.WriteString("\n\nActive Tasks:\n")
	lines := make([]string, len(tasks))
	for i, t := range tasks {
		lines[i] = taskContextLine(t)
	}
	sb.WriteString(strings.Join(lines, "\n"))
	return sb.String()
}

func bulkMessage(report string) string {
	return "Progress Updates: " + report
}
