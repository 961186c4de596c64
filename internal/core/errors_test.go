package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/appetiteclub/apt"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nilError", err: nil, want: http.StatusOK},
		{name: "notFound", err: fmt.Errorf("table x: %w", ErrNotFound), want: http.StatusNotFound},
		{name: "invalidState", err: fmt.Errorf("table x: %w", ErrInvalidState), want: http.StatusBadRequest},
		{name: "invalidInput", err: ErrInvalidInput, want: http.StatusBadRequest},
		{name: "conflict", err: fmt.Errorf("dup: %w", ErrConflict), want: http.StatusConflict},
		{name: "forbidden", err: ErrForbidden, want: http.StatusForbidden},
		{name: "unauthorized", err: ErrUnauthorized, want: http.StatusUnauthorized},
		{name: "storeFailure", err: errors.New("connection reset"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	err := fmt.Errorf("table table-4 is not reserved: %w", ErrInvalidState)
	if got := Message(err); got != "table table-4 is not reserved" {
		t.Errorf("Message() = %q", got)
	}

	plain := errors.New("boom")
	if got := Message(plain); got != "boom" {
		t.Errorf("Message() = %q, want boom", got)
	}
}

func TestRespondFailure(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "domainErrorKeepsMessage",
			err:        fmt.Errorf("session s-1 is already paid: %w", ErrConflict),
			wantStatus: http.StatusConflict,
			wantCode:   "conflict",
			wantMsg:    "session s-1 is already paid",
		},
		{
			name:       "storeErrorUsesFallback",
			err:        errors.New("mongo down"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
			wantMsg:    "Could not process payment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondFailure(w, apt.NewNoopLogger(), tt.err, "Could not process payment")

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var resp apt.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.wantCode)
			}
			if resp.Error.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Error.Message, tt.wantMsg)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	type payload struct {
		TableID string `json:"tableId"`
	}

	tests := []struct {
		name   string
		body   string
		wantOK bool
		wantID string
	}{
		{name: "validBody", body: `{"tableId":"table-1"}`, wantOK: true, wantID: "table-1"},
		{name: "emptyBody", body: "", wantOK: true},
		{name: "brokenJSON", body: `{"tableId":`, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			var p payload
			ok := DecodePayload(w, r, apt.NewNoopLogger(), &p)
			if ok != tt.wantOK {
				t.Fatalf("DecodePayload() = %v, want %v", ok, tt.wantOK)
			}
			if ok && p.TableID != tt.wantID {
				t.Errorf("tableId = %q, want %q", p.TableID, tt.wantID)
			}
			if !ok && w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}
