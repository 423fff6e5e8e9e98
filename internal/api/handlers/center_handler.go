package handlers

import (
	"net/http"
	"strconv"

	"github.com/sooahkim/childcenter-chat/internal/domain/repositories"
)

// CenterHandler handles center lookup HTTP requests
type CenterHandler struct {
	centerRepo repositories.CenterRepository
}

// NewCenterHandler creates a new center handler
func NewCenterHandler(centerRepo repositories.CenterRepository) *CenterHandler {
	return &CenterHandler{centerRepo: centerRepo}
}

// GetCenter handles GET /api/centers/{id}
func (h *CenterHandler) GetCenter(w http.ResponseWriter, r *http.Request) {
	centerID := r.PathValue("id")
	if centerID == "" {
		respondWithError(w, http.StatusBadRequest, "center ID is required")
		return
	}

	center, err := h.centerRepo.GetByID(r.Context(), centerID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, center)
}

// SearchCenters handles GET /api/centers/search?name=
func (h *CenterHandler) SearchCenters(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondWithError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 50 {
			limit = v
		}
	}

	centers, err := h.centerRepo.FindByName(r.Context(), name, limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"centers": centers,
		"count":   len(centers),
	})
}
