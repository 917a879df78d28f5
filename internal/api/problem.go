package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	apperrors "github.com/nhle/agentic-planner/internal/errors"
)

// ProblemDetail is an RFC 7807 error body. Every error response uses it.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// PlanID is set when plan creation stored the plan but failed to plan
	// its tasks.
	PlanID string `json:"plan_id,omitempty"`
}

// Error implements the error interface.
func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

const problemTypeBase = "https://agentic-planner.local/errors/"

// StatusFor maps an error to its HTTP status by Kind.
func StatusFor(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindNone:
		return http.StatusOK
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindInvalidInput:
		return http.StatusBadRequest
	case apperrors.KindOracleMalformed, apperrors.KindOracleFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// abortProblem writes p as an RFC 7807 response and stops the handler
// chain.
func abortProblem(c *gin.Context, p *ProblemDetail) {
	if p.Type == "" {
		p.Type = fmt.Sprintf("%s%d", problemTypeBase, p.Status)
	}
	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
	}

	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(p.Status, p)
}

// problemFor builds the problem for err. Storage and internal errors are
// logged and replaced with a generic detail.
func problemFor(c *gin.Context, err error) *ProblemDetail {
	status := StatusFor(err)
	p := &ProblemDetail{
		Type:     problemTypeBase + string(apperrors.KindOf(err)),
		Status:   status,
		Detail:   err.Error(),
		Instance: c.Request.URL.Path,
	}
	if status == http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("internal server error")
		p.Detail = "An unexpected error occurred. Please try again later."
	}
	return p
}

func abortErr(c *gin.Context, err error) {
	abortProblem(c, problemFor(c, err))
}

func abortBadRequest(c *gin.Context, detail string) {
	abortProblem(c, &ProblemDetail{
		Type:     problemTypeBase + string(apperrors.KindInvalidInput),
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: c.Request.URL.Path,
	})
}
