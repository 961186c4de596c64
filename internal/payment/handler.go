package payment

import (
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/appetiteclub/dinein/internal/order"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	gate   *Gate
	logger apt.Logger
	config *apt.Config
	tlm    *telemetry.HTTP
}

func NewHandler(gate *Gate, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		gate:   gate,
		logger: logger,
		config: config,
		tlm:    core.NewTelemetry(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/confirm-order", h.ConfirmOrder)
	r.Post("/process-payment", h.ProcessPayment)
}

type paymentRequest struct {
	SessionID     string  `json:"sessionId"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"paymentMethod"`
}

type sessionResult struct {
	Success bool           `json:"success"`
	Session *order.Session `json:"session"`
}

func (h *Handler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ConfirmOrder")
	defer finish()

	log := h.log(r)

	var req paymentRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	s, err := h.gate.ConfirmPayLater(r.Context(), req.SessionID)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not confirm order")
		return
	}

	apt.RespondSuccess(w, sessionResult{Success: true, Session: s})
}

func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ProcessPayment")
	defer finish()

	log := h.log(r)

	var req paymentRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	s, err := h.gate.Pay(r.Context(), req.SessionID, req.Amount, req.PaymentMethod)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not process payment")
		return
	}

	apt.RespondSuccess(w, sessionResult{Success: true, Session: s})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log apt.Logger, req *paymentRequest) bool {
	if !core.DecodePayload(w, r, log, req) {
		return false
	}
	if req.SessionID == "" {
		apt.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return false
	}
	return true
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return core.RequestLogger(h.logger, r)
}
