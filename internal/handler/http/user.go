package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/anuragpardeshii/MediCare/internal/domain"
	"github.com/anuragpardeshii/MediCare/internal/service"
	"github.com/anuragpardeshii/MediCare/pkg/httputil"
	"github.com/anuragpardeshii/MediCare/pkg/pagination"
)

// UserHandler serves the user directory.
type UserHandler struct {
	service *service.UserService
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// List handles GET /api/users. An unrecognised ?role is ignored rather than
// rejected, so the full directory is returned.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	var role *domain.Role
	if v := r.URL.Query().Get("role"); v != "" {
		if parsed, err := domain.ParseRole(v); err == nil {
			role = &parsed
		}
	}

	page := pagination.FromRequest(r)
	users, total, err := h.service.ListUsers(r.Context(), role, page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeList(w, domain.PublicUsers(users), total, page)
}

// ListDoctors handles GET /api/users/doctor. A non-empty ?q searches doctors
// by name or specialization instead of listing them all.
func (h *UserHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		doctors, total, err := h.service.SearchDoctors(r.Context(), q, page)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		writeList(w, doctors, total, page)
		return
	}

	users, total, err := h.service.ListDoctors(r.Context(), page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeList(w, domain.PublicUsers(users), total, page)
}

// ListPatients handles GET /api/users/patient.
func (h *UserHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	users, total, err := h.service.ListPatients(r.Context(), page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeList(w, domain.PublicUsers(users), total, page)
}

// Get handles GET /api/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dataResponse{Success: true, Data: user.Public()})
}

// Delete handles DELETE /api/users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Success: true, Message: "User deleted successfully"})
}
