package testutil

import (
	"context"
	"net/http"

	id "aegis/pkg/domain"
	"aegis/pkg/requestcontext"
)

// CallerHeader is the header the caller identity middleware reads.
const CallerHeader = "X-Caller-Identity"

// WithCaller adds a caller identity to the request context.
// This simulates what the identity middleware does for requests that carry one.
func WithCaller(req *http.Request, caller string) *http.Request {
	if parsed, err := id.ParseIdentity(caller); err == nil {
		return req.WithContext(requestcontext.WithCaller(req.Context(), parsed))
	}
	return req
}

// AsCaller sets the caller identity header for requests that pass through middleware.
func AsCaller(req *http.Request, caller string) *http.Request {
	req.Header.Set(CallerHeader, caller)
	return req
}

// ContextAs returns a background context carrying caller.
func ContextAs(caller id.Identity) context.Context {
	return requestcontext.WithCaller(context.Background(), caller)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
