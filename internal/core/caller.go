package core

import (
	"context"
	"net/http"
)

// Caller classifies who issued a request. Guests may only order what the
// menu offers at menu prices; staff may enter free-form lines.
type Caller string

const (
	CallerStaff Caller = "staff"
	CallerGuest Caller = "guest"
)

type callerKey struct{}

// WithCaller stores the caller classification in ctx.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller stored in ctx. Calls that never went through
// the HTTP surface (seeds, CLI, tests) are trusted as staff.
func CallerFrom(ctx context.Context) Caller {
	if c, ok := ctx.Value(callerKey{}).(Caller); ok {
		return c
	}
	return CallerStaff
}

// Middleware guards a route group.
type Middleware func(http.Handler) http.Handler

// Passthrough is the Middleware used when a guard is not configured.
func Passthrough(next http.Handler) http.Handler { return next }

// GuardOr returns m, or Passthrough when m is nil.
func GuardOr(m Middleware) Middleware {
	if m == nil {
		return Passthrough
	}
	return m
}
