package handler

import (
	"net/http"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

// SummarySource is the reconciliation read surface the handler exposes.
type SummarySource interface {
	GetStrategySummaries() []domain.StrategySummary
	RecentExecutions(limit int) []domain.RawExecutionEntry
}

// SummaryHandler serves strategy summaries and recent raw executions.
type SummaryHandler struct {
	source SummarySource
}

// NewSummaryHandler creates a SummaryHandler.
func NewSummaryHandler(source SummarySource) *SummaryHandler {
	return &SummaryHandler{source: source}
}

// List returns the per-strategy summaries, newest first.
// GET /api/summaries
func (h *SummaryHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.source.GetStrategySummaries())
}

// RecentExecutions returns the most recent raw execution entries.
// GET /api/executions/recent
func (h *SummaryHandler) RecentExecutions(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, domain.RecentExecutionLimit, 500)
	writeJSON(w, http.StatusOK, h.source.RecentExecutions(limit))
}
