package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/glance/internal/domain/analytics/entity"
	"github.com/vadim/glance/internal/domain/analytics/policy"
	"github.com/vadim/glance/internal/httpx/auth"
	"github.com/vadim/glance/internal/httpx/response"
)

// AnalyticsPolicy defines the interface for analytics operations
type AnalyticsPolicy interface {
	GetReport(ctx context.Context, in policy.GetReportInput) (*entity.Report, error)
	Export(ctx context.Context, in policy.ExportInput) (*policy.ExportOutput, error)
}

// AnalyticsHandler handles HTTP requests for workspace analytics
type AnalyticsHandler struct {
	policy AnalyticsPolicy
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(p AnalyticsPolicy) *AnalyticsHandler {
	return &AnalyticsHandler{policy: p}
}

// RegisterRoutes registers analytics routes
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/", h.GetReport())
		r.Post("/export", h.Export())
	})
}

// GetReport handles GET /analytics?workspace_id=&period=
func (h *AnalyticsHandler) GetReport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := r.URL.Query().Get("workspace_id")
		if workspaceID == "" {
			response.BadRequest(w, entity.ErrMissingWorkspaceID.Error())
			return
		}

		report, err := h.policy.GetReport(r.Context(), policy.GetReportInput{
			UserID:      auth.UserIDFromContext(r.Context()),
			WorkspaceID: workspaceID,
			Period:      entity.ParsePeriod(r.URL.Query().Get("period")),
		})
		if err != nil {
			handleAnalyticsError(w, err)
			return
		}

		response.OK(w, report)
	}
}

// ExportResponse represents the response for an exported report
type ExportResponse struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Export handles POST /analytics/export?workspace_id=&period=
func (h *AnalyticsHandler) Export() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := r.URL.Query().Get("workspace_id")
		if workspaceID == "" {
			response.BadRequest(w, entity.ErrMissingWorkspaceID.Error())
			return
		}

		out, err := h.policy.Export(r.Context(), policy.ExportInput{
			UserID:      auth.UserIDFromContext(r.Context()),
			WorkspaceID: workspaceID,
			Period:      entity.ParsePeriod(r.URL.Query().Get("period")),
		})
		if err != nil {
			handleAnalyticsError(w, err)
			return
		}

		response.Created(w, ExportResponse{Key: out.Key, URL: out.URL, Size: out.Size})
	}
}

// handleAnalyticsError maps domain errors to responses. Data store
// failures never leak details to the client; they are logged by the policy.
func handleAnalyticsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrMissingWorkspaceID):
		response.BadRequest(w, err.Error())
	case errors.Is(err, entity.ErrUnauthorized):
		response.Unauthorized(w, err.Error())
	case errors.Is(err, entity.ErrForbidden):
		response.Forbidden(w, err.Error())
	default:
		response.InternalError(w, "internal server error")
	}
}
