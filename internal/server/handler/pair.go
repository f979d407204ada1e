package handler

import (
	"net/http"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

// PairSource supplies the tracked pair configs.
type PairSource interface {
	Pairs() []domain.PairConfig
}

// PairHandler serves the monitored pair list.
type PairHandler struct {
	source PairSource
}

// NewPairHandler creates a PairHandler.
func NewPairHandler(source PairSource) *PairHandler {
	return &PairHandler{source: source}
}

// List returns the currently tracked pairs.
// GET /api/pairs
func (h *PairHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.source.Pairs())
}
