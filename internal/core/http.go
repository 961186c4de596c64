package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/appetiteclub/apt"
)

const MaxBodyBytes = 1 << 20

// DecodePayload reads a bounded JSON body into target. It answers the request
// itself and returns false when the body cannot be used.
func DecodePayload(w http.ResponseWriter, r *http.Request, log apt.Logger, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}

	if err := json.Unmarshal(body, target); err != nil {
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}

	return true
}

// RespondFailure writes the error envelope for err. Domain errors keep their
// message; anything else is logged and reported with the fallback message.
func RespondFailure(w http.ResponseWriter, log apt.Logger, err error, fallback string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Error(fallback, "error", err)
		apt.Error(w, status, CodeFor(err), fallback)
		return
	}

	log.Debug(fallback, "error", err)
	apt.Error(w, status, CodeFor(err), Message(err))
}

// Message strips the kind suffix from a wrapped domain error so clients see
// "table table-4 is not reserved" instead of "...: invalid state".
func Message(err error) string {
	msg := err.Error()
	for _, kind := range []error{ErrNotFound, ErrInvalidState, ErrConflict, ErrForbidden, ErrInvalidInput, ErrUnauthorized} {
		if errors.Is(err, kind) {
			msg = strings.TrimSuffix(msg, ": "+kind.Error())
			break
		}
	}
	return msg
}

// RequestLogger derives the per request logger used by handlers.
func RequestLogger(logger apt.Logger, r *http.Request) apt.Logger {
	return logger.With("request_id", apt.RequestIDFrom(r.Context()))
}
