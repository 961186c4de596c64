package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"
)

func TestHandlerPaymentRoutes(t *testing.T) {
	f := newFixture(t)
	s := f.order(t, "Soup")

	h := NewHandler(f.gate, apt.NewConfig(), apt.NewNoopLogger())
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	pay := fmt.Sprintf(`{"sessionId":%q,"amount":%v,"paymentMethod":"card"}`, s.ID, s.TotalAmount)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{name: "confirmMissingSession", path: "/confirm-order", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "confirmUnknownSession", path: "/confirm-order", body: `{"sessionId":"session-x"}`, wantStatus: http.StatusNotFound},
		{name: "payUnknownSessionWithoutMethod", path: "/process-payment", body: `{"sessionId":"missing","amount":1}`, wantStatus: http.StatusNotFound},
		{name: "confirm", path: "/confirm-order", body: `{"sessionId":"` + s.ID + `"}`, wantStatus: http.StatusOK},
		{name: "payWithoutMethod", path: "/process-payment", body: `{"sessionId":"` + s.ID + `","amount":1}`, wantStatus: http.StatusBadRequest},
		{name: "pay", path: "/process-payment", body: pay, wantStatus: http.StatusOK},
		{name: "payTwice", path: "/process-payment", body: pay, wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.path, bytes.NewBufferString(tt.body)))
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp struct {
				Data sessionResult `json:"data"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !resp.Data.Success || resp.Data.Session == nil || resp.Data.Session.ID != s.ID {
				t.Errorf("response = %+v", resp.Data)
			}
		})
	}
}
