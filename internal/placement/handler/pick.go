package handler

import (
	"context"
	"net/http"

	"github.com/rackslot/rackslot-backend/internal/placement/service"
	"github.com/rackslot/rackslot-backend/internal/placement/workflow"
	"github.com/rackslot/rackslot-backend/pkg/httputil"
	"github.com/rackslot/rackslot-backend/pkg/logger"
)

// PickHandler drives pick sessions
type PickHandler struct {
	service *service.PlacementService
	logger  *logger.Logger
}

// NewPickHandler creates a new pick handler
func NewPickHandler(svc *service.PlacementService, log *logger.Logger) *PickHandler {
	return &PickHandler{
		service: svc,
		logger:  log,
	}
}

// Start opens a pick session for a placed item
func (h *PickHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req itemCodeRequest
	if err := decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	p, err := h.service.StartPick(r.Context(), req.ItemCode)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, p)
}

// Get returns the current state of a pick session
func (h *PickHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.service.GetPick)
}

// ScanItem checks the scanned item label
func (h *PickHandler) ScanItem(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	h.step(w, r, func(ctx context.Context, id string) (*workflow.Pick, error) {
		return h.service.ScanPickItem(ctx, id, req.Code)
	})
}

// Commit removes the item from its slot
func (h *PickHandler) Commit(w http.ResponseWriter, r *http.Request) {
	operator, err := httputil.OperatorFromRequest(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	h.step(w, r, func(ctx context.Context, id string) (*workflow.Pick, error) {
		return h.service.CommitPick(ctx, id, operator)
	})
}

// Cancel abandons the pick; the item stays placed
func (h *PickHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.service.CancelPick)
}

func (h *PickHandler) step(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (*workflow.Pick, error)) {
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
