package handler

import (
	"net/http"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

// OpportunitySource is the live-state read surface the handler exposes.
type OpportunitySource interface {
	GetOpportunity(pairID string) (domain.Opportunity, bool)
	GetAllOpportunities() []domain.Opportunity
}

// OpportunityHandler serves live opportunity state.
type OpportunityHandler struct {
	source OpportunitySource
}

// NewOpportunityHandler creates an OpportunityHandler.
func NewOpportunityHandler(source OpportunitySource) *OpportunityHandler {
	return &OpportunityHandler{source: source}
}

// List returns every live opportunity, newest first.
// GET /api/opportunities
func (h *OpportunityHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.source.GetAllOpportunities())
}

// Get returns the live opportunity for one pair.
// GET /api/opportunities/{pairId}
func (h *OpportunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	pairID := pathParam(r, "pairId")
	opp, ok := h.source.GetOpportunity(pairID)
	if !ok {
		writeError(w, http.StatusNotFound, "no opportunity for pair "+pairID)
		return
	}
	writeJSON(w, http.StatusOK, opp)
}
