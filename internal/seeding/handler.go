package seeding

import (
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/go-chi/chi/v5"
)

type HandlerDeps struct {
	Seeder *Seeder
	Staff  core.Middleware
}

type Handler struct {
	seeder *Seeder
	staff  core.Middleware
	logger apt.Logger
	config *apt.Config
	tlm    *telemetry.HTTP
}

func NewHandler(deps HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		seeder: deps.Seeder,
		staff:  core.GuardOr(deps.Staff),
		logger: logger,
		config: config,
		tlm:    core.NewTelemetry(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/init-status", h.InitStatus)
	r.With(h.staff).Post("/force-init", h.ForceInit)
}

func (h *Handler) InitStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.InitStatus")
	defer finish()

	log := h.log(r)

	status, err := h.seeder.Status(r.Context())
	if err != nil {
		core.RespondFailure(w, log, err, "Could not read init status")
		return
	}

	apt.RespondSuccess(w, status)
}

func (h *Handler) ForceInit(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ForceInit")
	defer finish()

	log := h.log(r)

	if err := h.seeder.Force(r.Context()); err != nil {
		core.RespondFailure(w, log, err, "Could not re-initialize")
		return
	}

	log.Info("demo data re-initialized")
	apt.RespondSuccess(w, map[string]any{"success": true, "message": "Re-initialized"})
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return core.RequestLogger(h.logger, r)
}
