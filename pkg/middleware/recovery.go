package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/anuragpardeshii/MediCare/pkg/httputil"
)

// Recovery turns a handler panic into a logged 500 with the standard error
// envelope.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				l.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				httputil.WriteErrorResponse(w, r, http.StatusInternalServerError,
					"INTERNAL_ERROR", "Server error. Please try again.")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
