package handler

import (
	"net/http"

	"github.com/rackslot/rackslot-backend/internal/placement/service"
	"github.com/rackslot/rackslot-backend/pkg/httputil"
	"github.com/rackslot/rackslot-backend/pkg/logger"
)

// LocationHandler handles location catalog endpoints
type LocationHandler struct {
	service *service.PlacementService
	logger  *logger.Logger
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(svc *service.PlacementService, log *logger.Logger) *LocationHandler {
	return &LocationHandler{
		service: svc,
		logger:  log,
	}
}

// ListAvailable lists selectable slots that can take min_weight more kg
func (h *LocationHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	minWeight, err := httputil.QueryDecimal(r, "min_weight")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	locations, err := h.service.ListAvailableLocations(r.Context(), minWeight)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, locations, &httputil.Meta{Total: len(locations)})
}

// Get returns one location by code
func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	code, err := pathParam(r, "code")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	loc, err := h.service.GetLocation(r.Context(), code)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, loc)
}
