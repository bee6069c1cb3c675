package handler

import (
	"context"
	"net/http"

	"github.com/rackslot/rackslot-backend/internal/placement/service"
	"github.com/rackslot/rackslot-backend/internal/placement/workflow"
	"github.com/rackslot/rackslot-backend/pkg/httputil"
	"github.com/rackslot/rackslot-backend/pkg/logger"
)

// PlacementHandler drives placement sessions
type PlacementHandler struct {
	service *service.PlacementService
	logger  *logger.Logger
}

// NewPlacementHandler creates a new placement handler
func NewPlacementHandler(svc *service.PlacementService, log *logger.Logger) *PlacementHandler {
	return &PlacementHandler{
		service: svc,
		logger:  log,
	}
}

type selectLocationRequest struct {
	LocationCode string `json:"location_code" validate:"required,max=64"`
}

// Start opens a placement session for a pending item. The response carries
// the suggestion, or manual_selection when nothing fits.
func (h *PlacementHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req itemCodeRequest
	if err := decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	p, err := h.service.StartPlacement(r.Context(), req.ItemCode)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, p)
}

// Get returns the current state of a session
func (h *PlacementHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.service.GetPlacement)
}

// Accept confirms the suggested location
func (h *PlacementHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.service.AcceptSuggestion)
}

// Reject drops the suggestion and switches to manual selection
func (h *PlacementHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.service.RejectSuggestion)
}

// Select confirms a manually chosen location
func (h *PlacementHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectLocationRequest
	if err := decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	h.step(w, r, func(ctx context.Context, id string) (*workflow.Placement, error) {
		return h.service.SelectLocation(ctx, id, req.LocationCode)
	})
}

// ScanLocation checks the scanned slot label against the confirmed location
func (h *PlacementHandler) ScanLocation(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	h.step(w, r, func(ctx context.Context, id string) (*workflow.Placement, error) {
		return h.service.ScanLocation(ctx, id, req.Code)
	})
}

// ScanItem checks the scanned item label against the session item
func (h *PlacementHandler) ScanItem(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	h.step(w, r, func(ctx context.Context, id string) (*workflow.Placement, error) {
		return h.service.ScanItem(ctx, id, req.Code)
	})
}

// Commit places the item. On a capacity failure the session is already
// back in selection; GET it for the fresh suggestion.
func (h *PlacementHandler) Commit(w http.ResponseWriter, r *http.Request) {
	operator, err := httputil.OperatorFromRequest(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	h.step(w, r, func(ctx context.Context, id string) (*workflow.Placement, error) {
		return h.service.CommitPlacement(ctx, id, operator)
	})
}

// Cancel abandons the session
func (h *PlacementHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.service.CancelPlacement)
}

func (h *PlacementHandler) step(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (*workflow.Placement, error)) {
	id, err := pathParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	p, err := fn(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, p)
}
