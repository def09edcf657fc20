package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/anuragpardeshii/MediCare/internal/auth"
	"github.com/anuragpardeshii/MediCare/internal/domain"
	"github.com/anuragpardeshii/MediCare/internal/service"
	apperrors "github.com/anuragpardeshii/MediCare/pkg/errors"
	"github.com/anuragpardeshii/MediCare/pkg/httputil"
)

// AuthHandler handles HTTP requests for the auth endpoints.
type AuthHandler struct {
	service *service.AuthService
	cookie  *auth.SessionCookie
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, cookie *auth.SessionCookie, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, cookie: cookie, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for registration. Field rules are
// checked by the service so the messages match the web client's forms.
type RegisterRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	Specialization string `json:"specialization"`
}

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// --- Response types ---

type registerResponse struct {
	Success bool              `json:"success"`
	Msg     string            `json:"msg"`
	Token   string            `json:"token"`
	User    domain.PublicUser `json:"user"`
}

type loginResponse struct {
	Success bool              `json:"success"`
	Msg     string            `json:"msg"`
	User    domain.PublicUser `json:"user"`
}

type checkAuthResponse struct {
	User *domain.PublicUser `json:"user"`
}

type logoutResponse struct {
	Message string `json:"message"`
}

// --- Handlers ---

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, token, err := h.service.Register(r.Context(), service.RegisterInput{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		Role:           req.Role,
		Specialization: req.Specialization,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			httputil.WriteErrorResponse(w, r, http.StatusBadRequest, "CONFLICT", "User already exists.")
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookie.Attach(w, token)
	httputil.WriteJSON(w, http.StatusCreated, registerResponse{
		Success: true,
		Msg:     "Registration successful!",
		Token:   token,
		User:    user.Public(),
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, token, err := h.service.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookie.Attach(w, token)
	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Success: true,
		Msg:     "Login successful!",
		User:    user.Public(),
	})
}

// CheckAuth handles GET /api/auth/checkauth. It always answers 200; an
// anonymous caller, or one whose session could not be looked up, gets
// {"user": null}. The user comes from the Session middleware.
func (h *AuthHandler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	var resp checkAuthResponse
	if user := UserFromContext(r.Context()); user != nil {
		pub := user.Public()
		resp.User = &pub
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/auth/me and returns the identity resolved for this
// request.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, dataResponse{
		Success: true,
		Data:    IdentityFromContext(r.Context()),
	})
}

// Logout handles POST /api/auth/logout. The token itself stays valid until
// it expires; only the client's copy is dropped.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookie.Clear(w)
	httputil.WriteJSON(w, http.StatusOK, logoutResponse{Message: "Logged out successfully"})
}
