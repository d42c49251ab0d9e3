package testutil

import (
	"net/http"
	"time"

	id "confia/pkg/domain"
	"confia/pkg/requestcontext"
)

// WithAdminID adds an admin ID to the request context, simulating what the
// admin auth middleware does for authenticated requests. Invalid IDs are
// silently ignored.
func WithAdminID(req *http.Request, adminID string) *http.Request {
	parsed, err := id.ParseAdminID(adminID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithAdminID(req.Context(), parsed))
}

// WithRequestTime pins the request-scoped clock so timestamps produced by the
// handler under test are deterministic.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithRequestID adds a correlation ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
