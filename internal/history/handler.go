package history

import (
	"net/http"
	"strconv"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/go-chi/chi/v5"
)

const defaultLimit = 50

type HandlerDeps struct {
	Archiver *Archiver
	Staff    core.Middleware
}

type Handler struct {
	archiver *Archiver
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
		archiver: deps.Archiver,
		staff:    core.GuardOr(deps.Staff),
		logger:   logger,
		config:   config,
		tlm:      core.NewTelemetry(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(h.staff).Get("/history", h.ListHistory)
}

// ListHistory accepts ?limit=N, 0 meaning everything.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListHistory")
	defer finish()

	log := h.log(r)

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			apt.RespondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := h.archiver.List(r.Context(), limit)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not list history")
		return
	}

	apt.RespondSuccess(w, records)
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return core.RequestLogger(h.logger, r)
}
