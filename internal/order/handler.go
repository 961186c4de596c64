package order

import (
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	ledger *Ledger
	logger apt.Logger
	config *apt.Config
	tlm    *telemetry.HTTP
}

func NewHandler(ledger *Ledger, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		ledger: ledger,
		logger: logger,
		config: config,
		tlm:    core.NewTelemetry(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/init-session", h.InitSession)
	r.Post("/create-order", h.CreateOrder)
	r.Get("/session/{sessionId}", h.GetSession)
	r.Post("/update-order-item", h.UpdateOrderItem)
	r.Post("/remove-order-item", h.RemoveOrderItem)
}

type createOrderRequest struct {
	TableID string      `json:"tableId"`
	Items   []LineInput `json:"items"`
}

type itemRequest struct {
	SessionID string `json:"sessionId"`
	ItemID    string `json:"itemId"`
	Quantity  int    `json:"quantity"`
}

type sessionResponse struct {
	SessionID string   `json:"sessionId"`
	Session   *Session `json:"session"`
}

func (h *Handler) InitSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.InitSession")
	defer finish()

	log := h.log(r)

	var req createOrderRequest
	if !core.DecodePayload(w, r, log, &req) {
		return
	}
	if req.TableID == "" {
		apt.RespondError(w, http.StatusBadRequest, "tableId is required")
		return
	}

	s, err := h.ledger.StartSession(r.Context(), req.TableID)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not initialize session")
		return
	}

	apt.RespondSuccess(w, sessionResponse{SessionID: s.ID, Session: s})
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateOrder")
	defer finish()

	log := h.log(r)

	var req createOrderRequest
	if !core.DecodePayload(w, r, log, &req) {
		return
	}
	if req.TableID == "" {
		apt.RespondError(w, http.StatusBadRequest, "tableId is required")
		return
	}

	s, err := h.ledger.CreateOrAppendOrder(r.Context(), req.TableID, req.Items)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not create order")
		return
	}

	log.Info("order placed", "session_id", s.ID, "table_id", s.TableID, "lines", len(req.Items))
	apt.RespondSuccess(w, sessionResponse{SessionID: s.ID, Session: s})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetSession")
	defer finish()

	log := h.log(r)

	s, err := h.ledger.Get(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		core.RespondFailure(w, log, err, "Could not get session")
		return
	}

	apt.RespondSuccess(w, s)
}

func (h *Handler) UpdateOrderItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateOrderItem")
	defer finish()

	log := h.log(r)

	var req itemRequest
	if !h.decodeItemRequest(w, r, log, &req) {
		return
	}

	s, err := h.ledger.UpdateQuantity(r.Context(), req.SessionID, req.ItemID, req.Quantity)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not update order item")
		return
	}

	apt.RespondSuccess(w, map[string]any{"success": true, "session": s})
}

func (h *Handler) RemoveOrderItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RemoveOrderItem")
	defer finish()

	log := h.log(r)

	var req itemRequest
	if !h.decodeItemRequest(w, r, log, &req) {
		return
	}

	s, err := h.ledger.RemoveItem(r.Context(), req.SessionID, req.ItemID)
	if err != nil {
		core.RespondFailure(w, log, err, "Could not remove order item")
		return
	}

	apt.RespondSuccess(w, map[string]any{"success": true, "session": s})
}

func (h *Handler) decodeItemRequest(w http.ResponseWriter, r *http.Request, log apt.Logger, req *itemRequest) bool {
	if !core.DecodePayload(w, r, log, req) {
		return false
	}
	if req.SessionID == "" || req.ItemID == "" {
		apt.RespondError(w, http.StatusBadRequest, "sessionId and itemId are required")
		return false
	}
	return true
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return core.RequestLogger(h.logger, r)
}
