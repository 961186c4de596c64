package authn

import (
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *Service
	logger  apt.Logger
	config  *apt.Config
	tlm     *telemetry.HTTP
}

func NewHandler(service *Service, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		service: service,
		logger:  logger,
		config:  config,
		tlm:     core.NewTelemetry(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.Login)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Login")
	defer finish()

	log := h.log(r)

	var req loginRequest
	if !core.DecodePayload(w, r, log, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		apt.RespondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	login, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not sign in")
		return
	}

	apt.RespondSuccess(w, login)
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return core.RequestLogger(h.logger, r)
}
