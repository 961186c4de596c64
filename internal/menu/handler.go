package menu

import (
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/go-chi/chi/v5"
)

type HandlerDeps struct {
	Service *Service
	Staff   core.Middleware
}

type Handler struct {
	service *Service
	staff   core.Middleware
	logger  apt.Logger
	config  *apt.Config
	tlm     *telemetry.HTTP
}

func NewHandler(deps HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		service: deps.Service,
		staff:   core.GuardOr(deps.Staff),
		logger:  logger,
		config:  config,
		tlm:     core.NewTelemetry(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.ListMenu)

	r.Group(func(r chi.Router) {
		r.Use(h.staff)
		r.Post("/add-menu-item", h.AddMenuItem)
		r.Post("/update-menu-item", h.UpdateMenuItem)
		r.Post("/delete-menu-item", h.DeleteMenuItem)
		r.Post("/toggle-menu-availability", h.ToggleAvailability)
	})
}

type addItemRequest struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
}

type updateItemRequest struct {
	ID string `json:"id"`
	ItemUpdate
}

type toggleRequest struct {
	ID        string `json:"id"`
	Available bool   `json:"available"`
}

func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListMenu")
	defer finish()

	log := h.log(r)

	items, err := h.service.List(r.Context())
	if err != nil {
		core.RespondFailure(w, log, err, "Could not list menu")
		return
	}

	apt.RespondSuccess(w, items)
}

func (h *Handler) AddMenuItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AddMenuItem")
	defer finish()

	log := h.log(r)

	var req addItemRequest
	if !core.DecodePayload(w, r, log, &req) {
		return
	}

	item := NewItem(req.Name, req.Category, req.Price)
	item.Description = req.Description
	item.Image = req.Image

	created, err := h.service.Add(r.Context(), item)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not add menu item")
		return
	}

	apt.Respond(w, http.StatusCreated, created, nil)
}

func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateMenuItem")
	defer finish()

	log := h.log(r)

	var req updateItemRequest
	if !core.DecodePayload(w, r, log, &req) {
		return
	}
	if req.ID == "" {
		apt.RespondError(w, http.StatusBadRequest, "id is required")
		return
	}

	item, err := h.service.Update(r.Context(), req.ID, req.ItemUpdate)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not update menu item")
		return
	}

	apt.RespondSuccess(w, item)
}

func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeleteMenuItem")
	defer finish()

	log := h.log(r)

	var req struct {
		ID string `json:"id"`
	}
	if !core.DecodePayload(w, r, log, &req) {
		return
	}
	if req.ID == "" {
		apt.RespondError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.service.Delete(r.Context(), req.ID); err != nil {
		core.RespondFailure(w, log, err, "Could not delete menu item")
		return
	}

	apt.RespondSuccess(w, map[string]any{"success": true})
}

func (h *Handler) ToggleAvailability(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ToggleAvailability")
	defer finish()

	log := h.log(r)

	var req toggleRequest
	if !core.DecodePayload(w, r, log, &req) {
		return
	}

	item, err := h.service.SetAvailability(r.Context(), req.ID, req.Available)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not change availability")
		return
	}

	apt.RespondSuccess(w, item)
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return core.RequestLogger(h.logger, r)
}
