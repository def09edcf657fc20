package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/anuragpardeshii/MediCare/pkg/errors"
	"github.com/anuragpardeshii/MediCare/pkg/logger"
	"github.com/anuragpardeshii/MediCare/pkg/validator"
)

// ErrorResponse is the structured error body.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// Message is one entry of the flat message list the web client renders.
type Message struct {
	Msg string `json:"msg"`
}

// ErrorEnvelope is written for every failed request. Errors mirrors Error
// as a flat list so forms can show every message at once.
type ErrorEnvelope struct {
	Success bool           `json:"success"`
	Error   *ErrorResponse `json:"error"`
	Errors  []Message      `json:"errors"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteErrorResponse writes an error envelope with an explicit status.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, status int, code string, msgs ...string) {
	env := ErrorEnvelope{
		Error: &ErrorResponse{
			Code:      code,
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
		Errors: toMessages(msgs),
	}
	if len(msgs) > 0 {
		env.Error.Message = msgs[0]
	}
	WriteJSON(w, status, env)
}

// WriteError maps err onto a status and envelope. AppErrors keep their own
// status and messages; anything else becomes a logged 500 with a generic body.
// The request-scoped logger is preferred over fallback when present.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Status < http.StatusInternalServerError {
		WriteJSON(w, appErr.Status, ErrorEnvelope{
			Error:  &ErrorResponse{Code: appErr.Code, Message: appErr.Message, RequestID: requestID},
			Errors: toMessages(appErr.Messages()),
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := "Server error. Please try again."

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code, message, status = "NOT_FOUND", "resource not found", http.StatusNotFound
	case errors.Is(err, apperrors.ErrAlreadyExists):
		code, message, status = "ALREADY_EXISTS", "resource already exists", http.StatusConflict
	case errors.Is(err, apperrors.ErrInvalidInput):
		code, message, status = "INVALID_INPUT", err.Error(), http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, ErrorEnvelope{
		Error:  &ErrorResponse{Code: code, Message: message, RequestID: requestID},
		Errors: toMessages([]string{message}),
	})
}

// WriteValidationError writes a 400 for request decoding or tag validation
// failures, listing every failed field.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, ErrorEnvelope{
			Error: &ErrorResponse{
				Code:      "VALIDATION_ERROR",
				Message:   "request validation failed",
				Fields:    valErr.Fields(),
				RequestID: requestID,
			},
			Errors: toMessages(valErr.Messages()),
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, ErrorEnvelope{
		Error:  &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error(), RequestID: requestID},
		Errors: toMessages([]string{err.Error()}),
	})
}

func toMessages(msgs []string) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Message{Msg: m})
	}
	return out
}
