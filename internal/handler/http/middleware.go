package http

import (
	"context"
	"log/slog"
	"mime"
	"net/http"

	"github.com/anuragpardeshii/MediCare/internal/auth"
	"github.com/anuragpardeshii/MediCare/internal/domain"
	"github.com/anuragpardeshii/MediCare/pkg/httputil"
	"github.com/anuragpardeshii/MediCare/pkg/middleware"
)

type contextKey string

const (
	identityKey     contextKey = "identity"
	userKey         contextKey = "user"
	sessionErrorKey contextKey = "session_error"
)

// SessionResolver maps a session token to the user it belongs to. Absent,
// invalid or expired tokens and deleted users resolve to nil with no error;
// an error means the lookup itself failed.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*domain.User, error)
}

// Session resolves the caller on every request and stores the user and
// identity, or nil, in the request context before any handler runs. It never
// rejects a request; RequireSession and RequireRole do that. A failed lookup
// is kept in the context so protected routes answer 500 rather than 401.
func Session(resolver SessionResolver, cookie *auth.SessionCookie, base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cookie.Extract(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := resolver.ResolveSession(r.Context(), token)
			if err != nil {
				base.WarnContext(r.Context(), "session lookup failed", slog.String("error", err.Error()))
				ctx := context.WithValue(r.Context(), sessionErrorKey, err)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}
			r = middleware.EnrichLogger(r, base, user.ID, user.Role.String())
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a context carrying user and the identity derived from it.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return WithIdentity(ctx, &auth.Identity{UserID: user.ID, Role: user.Role})
}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller resolved by Session, or nil for
// anonymous requests.
func IdentityFromContext(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityKey).(*auth.Identity)
	return id
}

// UserFromContext returns the stored user resolved by Session, or nil.
func UserFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userKey).(*domain.User)
	return u
}

func sessionErrorFromContext(ctx context.Context) error {
	err, _ := ctx.Value(sessionErrorKey).(error)
	return err
}

// RequireSession rejects anonymous requests with 401, or with 500 when the
// session could not be resolved.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			if err := sessionErrorFromContext(r.Context()); err != nil {
				httputil.WriteError(w, r, err, nil)
				return
			}
			httputil.WriteErrorResponse(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Not authorized, please log in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects anonymous requests with 401 and callers of any other
// role with 403.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IdentityFromContext(r.Context()).Role.Allows(role) {
				httputil.WriteErrorResponse(w, r, http.StatusForbidden, "FORBIDDEN", "This action requires the "+role.String()+" role")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// ContentTypeJSON rejects request bodies declared as anything but JSON. A
// body without a Content-Type passes through.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "" && r.ContentLength != 0 {
			mt, _, err := mime.ParseMediaType(ct)
			if err != nil || mt != "application/json" {
				httputil.WriteErrorResponse(w, r, http.StatusUnsupportedMediaType,
					"UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
