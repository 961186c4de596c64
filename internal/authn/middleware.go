package authn

import (
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/internal/core"
)

// Identify stores the caller class of every request in its context.
func (s *Service) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ := s.Classify(r)
		next.ServeHTTP(w, r.WithContext(core.WithCaller(r.Context(), caller)))
	})
}

// RequireStaff rejects requests without a valid staff token. It lets every
// request through when enforcement is off.
func (s *Service) RequireStaff(next http.Handler) http.Handler {
	if !s.enforce {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r)
		if token == "" {
			apt.RespondError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		id, err := s.Verify(token)
		if err != nil {
			s.logger.Debug("invalid staff token", "error", err)
			apt.RespondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if !id.Role.Staff() {
			apt.RespondError(w, http.StatusForbidden, "Staff only")
			return
		}

		next.ServeHTTP(w, r.WithContext(core.WithCaller(r.Context(), core.CallerStaff)))
	})
}
