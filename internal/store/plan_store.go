package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/agentic-planner/internal/model"
)

const planColumns = `id, user_id, title, plan_type, description, start_date, end_date, created_at, is_active`

// CreatePlan inserts a new plan.
func (s *SQLiteStore) CreatePlan(ctx context.Context, plan model.Plan) (model.Plan, error) {
	plan.ID = uuid.New().String()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plans (`+planColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.UserID, plan.Title, string(plan.PlanType), plan.Description,
		plan.StartDate.UTC(), plan.EndDate.UTC(), plan.CreatedAt.UTC(),
		boolToInt(plan.IsActive),
	)
	if err != nil {
		return model.Plan{}, storageErr(err, "creating plan")
	}
	return plan, nil
}

// GetPlanByID retrieves a single plan.
func (s *SQLiteStore) GetPlanByID(ctx context.Context, id string) (*model.Plan, error) {
	var plan model.Plan
	err := s.db.GetContext(ctx, &plan, "SELECT "+planColumns+" FROM plans WHERE id = ?", id)
	if err != nil {
		return nil, lookupErr(err, "plan", id)
	}
	return &plan, nil
}

// GetPlans retrieves plans matching filter, newest first.
func (s *SQLiteStore) GetPlans(ctx context.Context, filter PlanFilter) ([]model.Plan, error) {
	query := "SELECT " + planColumns + " FROM plans WHERE 1=1"
	var args []interface{}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.ActiveOnly {
		query += " AND is_active = 1"
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	plans := []model.Plan{}
	if err := s.db.SelectContext(ctx, &plans, query, args...); err != nil {
		return nil, storageErr(err, "querying plans")
	}
	return plans, nil
}
