package planner

import "github.com/nhle/agentic-planner/internal/ai"

var parsedGoalSchema = ai.MustCompileSchema("parsed_goal", `{
	"type": "object",
	"required": ["parsed_goal"],
	"properties": {
		"parsed_goal": {
			"type": "object",
			"required": ["main_objective"],
			"properties": {
				"main_objective": {"type": "string"},
				"target_metrics": {
					"type": ["array", "null"],
					"items": {
						"type": "object",
						"properties": {
							"metric": {"type": ["string", "null"]},
							"target": {"type": ["string", "number", "null"]},
							"unit": {"type": ["string", "null"]}
						}
					}
				},
				"timeline": {"type": ["string", "null"]},
				"key_milestones": {"type": ["array", "null"], "items": {"type": "string"}},
				"success_criteria": {"type": ["string", "null"]}
			}
		}
	}
}`)

var taskPlanSchema = ai.MustCompileSchema("task_plan", `{
	"type": "object",
	"required": ["tasks"],
	"properties": {
		"tasks": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["title", "target_date"],
				"properties": {
					"title": {"type": "string", "minLength": 1},
					"description": {"type": ["string", "null"]},
					"target_date": {"type": "string"},
					"unit": {"type": ["string", "null"]},
					"target_value": {"type": ["number", "null"]},
					"priority": {"type": ["string", "null"]}
				}
			}
		},
		"plan_summary": {"type": ["string", "null"]}
	}
}`)
