package handler

import (
	"net/http"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/service"
	"github.com/rackslot/rackslot-backend/pkg/httputil"
	"github.com/rackslot/rackslot-backend/pkg/logger"
)

// CounterHandler handles kanban counter endpoints
type CounterHandler struct {
	service *service.PlacementService
	logger  *logger.Logger
}

// NewCounterHandler creates a new counter handler
func NewCounterHandler(svc *service.PlacementService, log *logger.Logger) *CounterHandler {
	return &CounterHandler{
		service: svc,
		logger:  log,
	}
}

type adjustCounterRequest struct {
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	RequestID string  `json:"request_id" validate:"max=128"`
	Notes     *string `json:"notes" validate:"omitempty,max=500"`
}

// Get returns the counter of a count-managed category
func (h *CounterHandler) Get(w http.ResponseWriter, r *http.Request) {
	category, err := pathParam(r, "category")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	counter, err := h.service.GetCounter(r.Context(), category)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, counter)
}

// In adds stock to a counter
func (h *CounterHandler) In(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, domain.MovementIn)
}

// Out takes stock from a counter
func (h *CounterHandler) Out(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, domain.MovementOut)
}

func (h *CounterHandler) adjust(w http.ResponseWriter, r *http.Request, direction domain.MovementType) {
	category, err := pathParam(r, "category")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	operator, err := httputil.OperatorFromRequest(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req adjustCounterRequest
	if err := decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.AdjustCounter(r.Context(), service.AdjustCounterInput{
		Category:  category,
		Direction: direction,
		Quantity:  req.Quantity,
		RequestID: req.RequestID,
		Operator:  operator,
		Notes:     req.Notes,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	httputil.JSON(w, status, result)
}
