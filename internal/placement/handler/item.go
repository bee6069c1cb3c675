package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/service"
	"github.com/rackslot/rackslot-backend/pkg/httputil"
	"github.com/rackslot/rackslot-backend/pkg/logger"
)

// ItemHandler handles item registration and history endpoints
type ItemHandler struct {
	service *service.PlacementService
	logger  *logger.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(svc *service.PlacementService, log *logger.Logger) *ItemHandler {
	return &ItemHandler{
		service: svc,
		logger:  log,
	}
}

type createItemRequest struct {
	SKU         string          `json:"sku" validate:"required,max=64"`
	Description string          `json:"description" validate:"max=500"`
	Weight      decimal.Decimal `json:"weight"`
	Category    string          `json:"category" validate:"required"`
	Metadata    domain.Metadata `json:"metadata"`
}

// Create registers a pending item and returns it with its system code
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.CreateItem(r.Context(), service.CreateItemInput{
		SKU:         req.SKU,
		Description: req.Description,
		Weight:      req.Weight,
		Category:    req.Category,
		Metadata:    req.Metadata,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, item)
}

// Get returns an item by system code
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	code, err := pathParam(r, "code")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.GetItem(r.Context(), code)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Movements returns the item's movement history, oldest first
func (h *ItemHandler) Movements(w http.ResponseWriter, r *http.Request) {
	code, err := pathParam(r, "code")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	movements, err := h.service.ListItemMovements(r.Context(), code)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, movements, &httputil.Meta{Total: len(movements)})
}

// Categories lists the configured item categories
func (h *ItemHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories := h.service.Categories()
	httputil.JSONWithMeta(w, http.StatusOK, categories, &httputil.Meta{Total: len(categories)})
}
