package progress

import (
	"context"
	"fmt"
	"strings"

	"github.com/nhle/agentic-planner/internal/ai"
	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/model"
	"github.com/nhle/agentic-planner/internal/store"
)

// BulkResult reports a bulk update.
type BulkResult struct {
	Status       string   `json:"status"`
	UpdatedTasks []string `json:"updated_tasks"`
	Summary      string   `json:"summary"`
	TotalUpdates int      `json:"total_updates"`
	Error        string   `json:"error,omitempty"`

	// Err is the typed cause behind Error.
	Err error `json:"-"`
}

func bulkFailed(err error, updated []string) BulkResult {
	if updated == nil {
		updated = []string{}
	}
	return BulkResult{
		Status:       StatusError,
		UpdatedTasks: updated,
		TotalUpdates: len(updated),
		Error:        err.Error(),
		Err:          err,
	}
}

// BulkUpdate matches a free-text report against the user's open tasks in
// active plans and applies every match whose confidence reaches the
// threshold, in the order the generator returned them. Weaker matches and
// matches naming tasks outside the candidate set are dropped without being
// reported.
func (u *Updater) BulkUpdate(ctx context.Context, userID, report string) BulkResult {
	switch {
	case strings.TrimSpace(userID) == "":
		return bulkFailed(fmt.Errorf("%w: user_id is required", apperrors.ErrInvalidInput), nil)
	case strings.TrimSpace(report) == "":
		return bulkFailed(fmt.Errorf("%w: progress_updates is required", apperrors.ErrInvalidInput), nil)
	}

	log := u.logger.With().Str("user_id", userID).Logger()

	plans, err := u.store.GetPlans(ctx, store.PlanFilter{UserID: userID, ActiveOnly: true})
	if err != nil {
		return bulkFailed(err, nil)
	}
	if len(plans) == 0 {
		return bulkFailed(apperrors.ErrNoActivePlans, nil)
	}

	planIDs := make([]string, len(plans))
	for i, p := range plans {
		planIDs[i] = p.ID
	}
	tasks, err := u.store.GetTasks(ctx, store.TaskFilter{
		PlanIDs:  planIDs,
		Statuses: []model.TaskStatus{model.TaskStatusPending, model.TaskStatusInProgress},
	})
	if err != nil {
		return bulkFailed(err, nil)
	}
	if len(tasks) == 0 {
		log.Info().Msg("no open tasks to match")
		return BulkResult{
			Status:       StatusSuccess,
			UpdatedTasks: []string{},
			Summary:      "No open tasks to update.",
		}
	}

	raw, err := u.gen.Generate(ctx, ai.Prompt{
		System:      bulkInstruction(tasks),
		User:        bulkMessage(report),
		Temperature: analysisTemperature,
	})
	if err != nil {
		return bulkFailed(apperrors.Mark(fmt.Errorf("bulk progress update failed: %w", err), apperrors.ErrOracleFailed), nil)
	}

	var out struct {
		BulkUpdates []model.BulkUpdate `json:"bulk_updates"`
		Summary     string             `json:"summary"`
	}
	if err := ai.Decode(raw, bulkSchema, &out); err != nil {
		log.Warn().Err(err).Msg("unreadable bulk analysis")
		return bulkFailed(fmt.Errorf("bulk progress update failed: %w", err), nil)
	}

	candidates := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		candidates[t.ID] = true
	}

	updated := []string{}
	for _, upd := range out.BulkUpdates {
		entry := log.With().Str("task_id", upd.TaskID).Float64("confidence", upd.Confidence).Logger()

		if upd.Confidence < u.threshold {
			entry.Debug().Float64("threshold", u.threshold).Msg("dropping low-confidence match")
			continue
		}
		if !candidates[upd.TaskID] {
			entry.Warn().Msg("dropping match for task outside the open task set")
			continue
		}

		value := upd.NewValue
		_, err := u.store.RecordProgress(ctx, model.ProgressLog{
			TaskID: upd.TaskID,
			UserID: userID,
			Date:   u.clock.Now(),
			Status: upd.NewStatus,
			Value:  &value,
			Note:   upd.Note,
		}, true)
		if err != nil {
			entry.Error().Err(err).Msg("recording matched progress failed")
			return bulkFailed(err, updated)
		}
		updated = append(updated, upd.TaskID)
	}

	log.Info().
		Int("matches", len(out.BulkUpdates)).
		Int("applied", len(updated)).
		Msg("bulk progress applied")

	return BulkResult{
		Status:       StatusSuccess,
		UpdatedTasks: updated,
		Summary:      out.Summary,
		TotalUpdates: len(updated),
	}
}
