package feed

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"
)

const keepaliveInterval = 30 * time.Second

// SSEHandler streams change events as Server-Sent Events. It complements,
// and does not replace, the polling endpoints.
type SSEHandler struct {
	broadcaster *Broadcaster
	logger      apt.Logger
	keepalive   time.Duration
}

func NewSSEHandler(b *Broadcaster, logger apt.Logger) *SSEHandler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &SSEHandler{
		broadcaster: b,
		logger:      logger,
		keepalive:   keepaliveInterval,
	}
}

func (h *SSEHandler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.ServeHTTP)
}

// ServeHTTP accepts ?topics=kitchen,tables&sessionId=...&tableId=...
func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		apt.RespondError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	q := r.URL.Query()
	filter := Filter{
		Topics:    ParseTopics(q.Get("topics")),
		SessionID: q.Get("sessionId"),
		TableID:   q.Get("tableId"),
	}

	id, ch := h.broadcaster.Subscribe(filter)
	defer h.broadcaster.Unsubscribe(id)
	h.logger.Info("new SSE connection", "subscriber_id", id)

	fmt.Fprintf(w, ": connected\n\n")
	fmt.Fprintf(w, "retry: 2000\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected", "subscriber_id", id)
			return

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()

		case evt, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				h.logger.Error("cannot encode SSE event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.EventType, data)
			flusher.Flush()
		}
	}
}
