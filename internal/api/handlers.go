package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/agentic-planner/internal/model"
	"github.com/nhle/agentic-planner/internal/planner"
	"github.com/nhle/agentic-planner/internal/progress"
)

type createPlanBody struct {
	UserID      string         `json:"user_id"`
	Title       string         `json:"title"`
	PlanType    model.PlanType `json:"plan_type"`
	Description string         `json:"description"`
	StartDate   string         `json:"start_date"`
	EndDate     string         `json:"end_date"`
}

func (s *Server) handleCreatePlan(c *gin.Context) {
	var body createPlanBody
	if !bindJSON(c, &body) {
		return
	}

	start, err := model.ParseDate(body.StartDate)
	if err != nil {
		abortBadRequest(c, fmt.Sprintf("invalid start_date %q", body.StartDate))
		return
	}
	end, err := model.ParseDate(body.EndDate)
	if err != nil {
		abortBadRequest(c, fmt.Sprintf("invalid end_date %q", body.EndDate))
		return
	}

	res, err := s.plans.CreatePlan(c.Request.Context(), planner.CreatePlanRequest{
		UserID:      body.UserID,
		Title:       body.Title,
		PlanType:    body.PlanType,
		Description: body.Description,
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		p := problemFor(c, err)
		if res != nil {
			p.PlanID = res.PlanID
		}
		abortProblem(c, p)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handlePlanStatus(c *gin.Context) {
	st, err := s.plans.Status(c.Request.Context(), c.Param("plan_id"))
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleUserPlans(c *gin.Context) {
	plans, err := s.plans.UserPlans(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

func (s *Server) handlePlanTasks(c *gin.Context) {
	tasks, err := s.plans.PlanTasks(c.Request.Context(), c.Param("plan_id"))
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(tasks))
}

func (s *Server) handleUserTasks(c *gin.Context) {
	tasks, err := s.plans.UserTasks(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(tasks))
}

func (s *Server) handleEditTask(c *gin.Context) {
	var edit progress.TaskEdit
	if !bindJSON(c, &edit) {
		return
	}

	task, err := s.progress.EditTask(c.Request.Context(), c.Param("task_id"), edit)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

type progressLoggedBody struct {
	Message    string `json:"message"`
	ProgressID string `json:"progress_id"`
}

func (s *Server) handleLogProgress(c *gin.Context) {
	var entry progress.ManualEntry
	if !bindJSON(c, &entry) {
		return
	}

	saved, err := s.progress.LogProgress(c.Request.Context(), entry)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, progressLoggedBody{
		Message:    "Progress logged successfully",
		ProgressID: saved.ID,
	})
}

type aiUpdateBody struct {
	TaskID    string `json:"task_id"`
	UserID    string `json:"user_id"`
	UserInput string `json:"user_input"`
}

// handleAIUpdate answers with the tagged result in both outcomes; the
// status code follows the error kind.
func (s *Server) handleAIUpdate(c *gin.Context) {
	var body aiUpdateBody
	if !bindJSON(c, &body) {
		return
	}

	res := s.progress.AnalyzeAndUpdate(c.Request.Context(), body.TaskID, body.UserInput, body.UserID)
	c.JSON(StatusFor(res.Err), res)
}

type bulkUpdateBody struct {
	UserID          string `json:"user_id"`
	ProgressUpdates string `json:"progress_updates"`
}

func (s *Server) handleBulkAIUpdate(c *gin.Context) {
	var body bulkUpdateBody
	if !bindJSON(c, &body) {
		return
	}

	res := s.progress.BulkUpdate(c.Request.Context(), body.UserID, body.ProgressUpdates)
	c.JSON(StatusFor(res.Err), res)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
