package kitchen

import (
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/go-chi/chi/v5"
)

type HandlerDeps struct {
	Dispatcher *Dispatcher
	Staff      core.Middleware
}

type Handler struct {
	dispatcher *Dispatcher
	staff      core.Middleware
	logger     apt.Logger
	config     *apt.Config
	tlm        *telemetry.HTTP
}

func NewHandler(deps HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		dispatcher: deps.Dispatcher,
		staff:      core.GuardOr(deps.Staff),
		logger:     logger,
		config:     config,
		tlm:        core.NewTelemetry(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/kitchen-orders", h.ListTickets)

	r.Group(func(r chi.Router) {
		r.Use(h.staff)
		r.Post("/update-item-status", h.UpdateItemStatus)
		r.Post("/update-all-items-status", h.UpdateAllItemsStatus)
		r.Post("/delete-kitchen-order", h.DeleteTickets)
		r.Post("/delete-all-completed-orders", h.DeleteAllCompleted)
	})
}

type statusRequest struct {
	OrderID   string `json:"orderId"`
	SessionID string `json:"sessionId"`
	ItemID    string `json:"itemId"`
	Status    string `json:"status"`
}

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListTickets")
	defer finish()

	log := h.log(r)

	tickets, err := h.dispatcher.List(r.Context())
	if err != nil {
		core.RespondFailure(w, log, err, "Could not list kitchen orders")
		return
	}

	apt.RespondSuccess(w, tickets)
}

func (h *Handler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateItemStatus")
	defer finish()

	log := h.log(r)

	var req statusRequest
	if !core.DecodePayload(w, r, log, &req) {
		return
	}

	ticket, err := h.dispatcher.UpdateItemStatus(r.Context(), req.OrderID, req.ItemID, req.Status)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not update item status")
		return
	}

	log.Debug("item status updated", "ticket_id", ticket.ID, "item_id", req.ItemID, "status", req.Status)
	apt.RespondSuccess(w, map[string]any{"success": true, "order": ticket})
}

func (h *Handler) UpdateAllItemsStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateAllItemsStatus")
	defer finish()

	log := h.log(r)

	var req statusRequest
	if !core.DecodePayload(w, r, log, &req) {
		return
	}

	tickets, err := h.dispatcher.UpdateAllItemsStatus(r.Context(), req.OrderID, req.SessionID, req.Status)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not update items status")
		return
	}

	apt.RespondSuccess(w, map[string]any{"success": true, "orders": tickets})
}

func (h *Handler) DeleteTickets(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeleteTickets")
	defer finish()

	log := h.log(r)

	var req statusRequest
	if !core.DecodePayload(w, r, log, &req) {
		return
	}

	n, err := h.dispatcher.DeleteTickets(r.Context(), req.SessionID)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not delete kitchen order")
		return
	}

	apt.RespondSuccess(w, map[string]any{"success": true, "deleted": n})
}

func (h *Handler) DeleteAllCompleted(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeleteAllCompleted")
	defer finish()

	log := h.log(r)

	ids, err := h.dispatcher.DeleteAllCompleted(r.Context())
	if err != nil {
		core.RespondFailure(w, log, err, "Could not delete completed orders")
		return
	}

	log.Info("completed kitchen orders deleted", "count", len(ids))
	apt.RespondSuccess(w, map[string]any{"success": true, "deleted": ids})
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return core.RequestLogger(h.logger, r)
}
