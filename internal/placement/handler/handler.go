// Package handler exposes the placement service over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rackslot/rackslot-backend/internal/placement/service"
	"github.com/rackslot/rackslot-backend/pkg/errors"
	"github.com/rackslot/rackslot-backend/pkg/httputil"
	"github.com/rackslot/rackslot-backend/pkg/logger"
)

// Handlers groups the resource handlers of the placement API.
type Handlers struct {
	Locations  *LocationHandler
	Items      *ItemHandler
	Placements *PlacementHandler
	Picks      *PickHandler
	Counters   *CounterHandler
}

// New creates all handlers over one service.
func New(svc *service.PlacementService, log *logger.Logger) *Handlers {
	log = log.WithComponent("http")
	return &Handlers{
		Locations:  NewLocationHandler(svc, log),
		Items:      NewItemHandler(svc, log),
		Placements: NewPlacementHandler(svc, log),
		Picks:      NewPickHandler(svc, log),
		Counters:   NewCounterHandler(svc, log),
	}
}

// Routes returns the router mounted under /api/v1/placement.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/locations", func(r chi.Router) {
		r.Get("/", h.Locations.ListAvailable)
		r.Get("/{code}", h.Locations.Get)
	})

	r.Get("/categories", h.Items.Categories)
	r.Route("/items", func(r chi.Router) {
		r.Post("/", h.Items.Create)
		r.Get("/{code}", h.Items.Get)
		r.Get("/{code}/movements", h.Items.Movements)
	})

	r.Route("/placements", func(r chi.Router) {
		r.Post("/", h.Placements.Start)
		r.Get("/{id}", h.Placements.Get)
		r.Post("/{id}/accept", h.Placements.Accept)
		r.Post("/{id}/reject", h.Placements.Reject)
		r.Post("/{id}/select", h.Placements.Select)
		r.Post("/{id}/scan-location", h.Placements.ScanLocation)
		r.Post("/{id}/scan-item", h.Placements.ScanItem)
		r.Post("/{id}/commit", h.Placements.Commit)
		r.Post("/{id}/cancel", h.Placements.Cancel)
	})

	r.Route("/picks", func(r chi.Router) {
		r.Post("/", h.Picks.Start)
		r.Get("/{id}", h.Picks.Get)
		r.Post("/{id}/scan-item", h.Picks.ScanItem)
		r.Post("/{id}/commit", h.Picks.Commit)
		r.Post("/{id}/cancel", h.Picks.Cancel)
	})

	r.Route("/counters/{category}", func(r chi.Router) {
		r.Get("/", h.Counters.Get)
		r.Post("/in", h.Counters.In)
		r.Post("/out", h.Counters.Out)
	})

	return r
}

type itemCodeRequest struct {
	ItemCode string `json:"item_code" validate:"required,max=64"`
}

type scanRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

// decode reads and validates a JSON body.
func decode(r *http.Request, v interface{}) error {
	if err := httputil.DecodeJSON(r, v); err != nil {
		return err
	}
	return httputil.Validate(v)
}

func pathParam(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if v == "" {
		return "", errors.BadRequest(name + " is required")
	}
	if len(v) > 200 {
		return "", errors.BadRequest(name + " too long")
	}
	return v, nil
}
