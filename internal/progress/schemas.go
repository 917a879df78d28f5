package progress

import "github.com/nhle/agentic-planner/internal/ai"

// analysisSchema leaves confidence optional and unbounded: the single-task
// update applies no gate, so the score is only reported back.
var analysisSchema = ai.MustCompileSchema("progress_analysis", `{
	"type": "object",
	"required": ["progress_analysis"],
	"properties": {
		"progress_analysis": {
			"type": "object",
			"required": ["new_value", "new_status", "note"],
			"properties": {
				"new_value": {"type": "number"},
				"new_status": {"enum": ["pending", "in_progress", "completed", "skipped"]},
				"confidence": {"type": ["number", "null"]},
				"note": {"type": "string"},
				"reasoning": {"type": ["string", "null"]}
			}
		}
	}
}`)

var bulkSchema = ai.MustCompileSchema("bulk_updates", `{
	"type": "object",
	"required": ["bulk_updates", "summary"],
	"properties": {
		"bulk_updates": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["task_id", "new_value", "new_status", "confidence"],
				"properties": {
					"task_id": {"type": "string"},
					"new_value": {"type": "number"},
					"new_status": {"enum": ["pending", "in_progress", "completed", "skipped"]},
					"note": {"type": ["string", "null"]},
					"confidence": {"type": "number", "minimum": 0, "maximum": 1}
				}
			}
		},
		"summary": {"type": "string"}
	}
}`)
