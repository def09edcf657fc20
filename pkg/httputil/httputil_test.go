package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/anuragpardeshii/MediCare/pkg/errors"
	"github.com/anuragpardeshii/MediCare/pkg/logger"
	"github.com/anuragpardeshii/MediCare/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"msg": "ok"})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"msg":"ok"}`, rec.Body.String())
}

func TestWriteError_AppErrorKeepsStatusAndMessages(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(logger.WithCorrelationID(req.Context(), "req-42"))
	rec := httptest.NewRecorder()

	WriteError(rec, req, apperrors.Validation("Name is required", "Password too short"), testLogger())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "req-42", env.Error.RequestID)
	assert.Equal(t, []Message{{Msg: "Name is required"}, {Msg: "Password too short"}}, env.Errors)
}

func TestWriteError_InvalidCredentials(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()

	WriteError(rec, req, apperrors.InvalidCredentials(), testLogger())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, []Message{{Msg: "Invalid credentials"}}, env.Errors)
	assert.False(t, env.Success)
}

func TestWriteError_WrappedSentinel(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	WriteError(rec, req, fmt.Errorf("get user: %w", apperrors.ErrNotFound), testLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Error.Code)
}

func TestWriteError_UnknownErrorHidesCause(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	WriteError(rec, req, fmt.Errorf("dial tcp: connection refused"), testLogger())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Equal(t, "Server error. Please try again.", env.Errors[0].Msg)
}

func TestWriteError_InternalAppErrorHidesCause(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	WriteError(rec, req, apperrors.Internal(fmt.Errorf("pool closed")), testLogger())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pool closed")
}

func TestWriteValidationError_ListsFields(t *testing.T) {
	type input struct {
		Email string `json:"email" validate:"required,account_email"`
	}
	err := validator.Validate(input{Email: "nope"})
	require.Error(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	WriteValidationError(rec, req, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "must be a valid email address", env.Error.Fields["email"])
	assert.Equal(t, []Message{{Msg: "email must be a valid email address"}}, env.Errors)
}

func TestWriteValidationError_PlainError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil).WithContext(context.Background())
	rec := httptest.NewRecorder()
	WriteValidationError(rec, req, fmt.Errorf("decode request body: unexpected EOF"))

	env := decodeEnvelope(t, rec)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
	assert.Len(t, env.Errors, 1)
}

func TestWriteErrorResponse(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	WriteErrorResponse(rec, req, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "authentication required", env.Error.Message)
	assert.Equal(t, []Message{{Msg: "authentication required"}}, env.Errors)
}
