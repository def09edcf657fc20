package middleware

import (
	"log/slog"
	"net/http"

	"github.com/anuragpardeshii/MediCare/pkg/logger"
)

// RequestLogger stores a request-scoped logger carrying correlation_id,
// trace_id and span_id in the context. Mount it after RequestLogging and
// Tracing. The session middleware later adds user_id and role via
// EnrichLogger once the caller is known.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EnrichLogger records the caller's identity on r's context and rebuilds the
// request-scoped logger from base so it carries user_id and role.
func EnrichLogger(r *http.Request, base *slog.Logger, userID, role string) *http.Request {
	ctx := logger.WithIdentity(r.Context(), userID, role)
	ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
	return r.WithContext(ctx)
}
