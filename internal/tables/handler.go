package tables

import (
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/go-chi/chi/v5"
)

type HandlerDeps struct {
	Registry *Registry
	// Staff guards the administrative routes.
	Staff core.Middleware
}

type Handler struct {
	registry *Registry
	staff    core.Middleware
	logger   apt.Logger
	config   *apt.Config
	tlm      *telemetry.HTTP
}

func NewHandler(deps HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		registry: deps.Registry,
		staff:    core.GuardOr(deps.Staff),
		logger:   logger,
		config:   config,
		tlm:      core.NewTelemetry(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/tables", h.ListTables)
	r.Post("/complete-session", h.CompleteSession)

	r.Group(func(r chi.Router) {
		r.Use(h.staff)
		r.Post("/reserve-table", h.ReserveTable)
		r.Post("/unreserve-table", h.UnreserveTable)
		r.Post("/add-table", h.AddTable)
		r.Post("/remove-table", h.RemoveTable)
	})
}

type tableRequest struct {
	TableID string `json:"tableId"`
}

type addTableRequest struct {
	Number   int `json:"number"`
	Capacity int `json:"capacity"`
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListTables")
	defer finish()

	log := h.log(r)

	tables, err := h.registry.List(r.Context())
	if err != nil {
		core.RespondFailure(w, log, err, "Could not list tables")
		return
	}

	apt.RespondSuccess(w, tables)
}

func (h *Handler) ReserveTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ReserveTable")
	defer finish()

	log := h.log(r)

	var req tableRequest
	if !h.decodeTableRef(w, r, log, &req) {
		return
	}

	table, err := h.registry.Reserve(r.Context(), req.TableID)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not reserve table")
		return
	}

	apt.RespondSuccess(w, map[string]any{"success": true, "table": table})
}

func (h *Handler) UnreserveTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UnreserveTable")
	defer finish()

	log := h.log(r)

	var req tableRequest
	if !h.decodeTableRef(w, r, log, &req) {
		return
	}

	table, err := h.registry.Unreserve(r.Context(), req.TableID)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not unreserve table")
		return
	}

	apt.RespondSuccess(w, map[string]any{"success": true, "table": table})
}

func (h *Handler) AddTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AddTable")
	defer finish()

	log := h.log(r)

	var req addTableRequest
	if !core.DecodePayload(w, r, log, &req) {
		return
	}

	table, err := h.registry.Add(r.Context(), req.Number, req.Capacity)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not add table")
		return
	}

	log.Info("table added", "table_id", table.ID, "number", table.Number)
	apt.Respond(w, http.StatusCreated, map[string]any{"success": true, "table": table}, nil)
}

func (h *Handler) RemoveTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RemoveTable")
	defer finish()

	log := h.log(r)

	var req tableRequest
	if !h.decodeTableRef(w, r, log, &req) {
		return
	}

	if err := h.registry.Remove(r.Context(), req.TableID); err != nil {
		core.RespondFailure(w, log, err, "Could not remove table")
		return
	}

	apt.RespondSuccess(w, map[string]any{"success": true})
}

func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CompleteSession")
	defer finish()

	log := h.log(r)

	var req tableRequest
	if !h.decodeTableRef(w, r, log, &req) {
		return
	}

	table, err := h.registry.Complete(r.Context(), req.TableID)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not complete session")
		return
	}

	log.Info("session completed", "table_id", table.ID)
	apt.RespondSuccess(w, map[string]any{"success": true, "table": table})
}

func (h *Handler) decodeTableRef(w http.ResponseWriter, r *http.Request, log apt.Logger, req *tableRequest) bool {
	if !core.DecodePayload(w, r, log, req) {
		return false
	}
	if req.TableID == "" {
		apt.RespondError(w, http.StatusBadRequest, "tableId is required")
		return false
	}
	return true
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return core.RequestLogger(h.logger, r)
}
