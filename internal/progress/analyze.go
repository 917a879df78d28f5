package progress

import (
	"context"
	"fmt"
	"strings"

	"github.com/nhle/agentic-planner/internal/ai"
	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/model"
)

// UpdateResult reports a single-task update.
type UpdateResult struct {
	Status      string                  `json:"status"`
	ProgressID  string                  `json:"progress_id,omitempty"`
	Analysis    *model.ProgressAnalysis `json:"analysis,omitempty"`
	TaskUpdated bool                    `json:"task_updated"`
	Error       string                  `json:"error,omitempty"`

	// Err is the typed cause behind Error.
	Err error `json:"-"`
}

func updateFailed(err error) UpdateResult {
	return UpdateResult{Status: StatusError, Error: err.Error(), Err: err}
}

// AnalyzeAndUpdate interprets a free-text report about one task and writes
// the result: one progress log plus the task's new value and status. There
// is no confidence gate here. A missing task fails before the generator is
// called; a failed generator call or unreadable analysis writes nothing.
func (u *Updater) AnalyzeAndUpdate(ctx context.Context, taskID, report, userID string) UpdateResult {
	switch {
	case strings.TrimSpace(taskID) == "":
		return updateFailed(fmt.Errorf("%w: task_id is required", apperrors.ErrInvalidInput))
	case strings.TrimSpace(userID) == "":
		return updateFailed(fmt.Errorf("%w: user_id is required", apperrors.ErrInvalidInput))
	case strings.TrimSpace(report) == "":
		return updateFailed(fmt.Errorf("%w: user_input is required", apperrors.ErrInvalidInput))
	}

	log := u.logger.With().Str("task_id", taskID).Str("user_id", userID).Logger()

	task, err := u.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return updateFailed(err)
	}

	raw, err := u.gen.Generate(ctx, ai.Prompt{
		System:      analysisInstruction(*task),
		User:        analysisMessage(report),
		Temperature: analysisTemperature,
	})
	if err != nil {
		return updateFailed(apperrors.Mark(fmt.Errorf("progress update failed: %w", err), apperrors.ErrOracleFailed))
	}

	var out struct {
		ProgressAnalysis model.ProgressAnalysis `json:"progress_analysis"`
	}
	if err := ai.Decode(raw, analysisSchema, &out); err != nil {
		log.Warn().Err(err).Msg("unreadable progress analysis")
		return updateFailed(fmt.Errorf("progress update failed: %w", err))
	}
	analysis := out.ProgressAnalysis

	value := analysis.NewValue
	saved, err := u.store.RecordProgress(ctx, model.ProgressLog{
		TaskID: task.ID,
		UserID: userID,
		Date:   u.clock.Now(),
		Status: analysis.NewStatus,
		Value:  &value,
		Note:   analysis.Note,
	}, true)
	if err != nil {
		return updateFailed(err)
	}

	log.Info().
		Str("status", string(analysis.NewStatus)).
		Float64("value", analysis.NewValue).
		Float64("confidence", analysis.Confidence).
		Msg("task progress updated")

	return UpdateResult{
		Status:      StatusSuccess,
		ProgressID:  saved.ID,
		Analysis:    &analysis,
		TaskUpdated: true,
	}
}
