package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteErrorUsesAppError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, NewAppError("CHECKOUT_IN_PROGRESS", "busy", http.StatusConflict, nil))
	require.Equal(t, http.StatusConflict, rr.Code)
	require.JSONEq(t, `{"error":{"code":"CHECKOUT_IN_PROGRESS","message":"busy"}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	WriteError(rr, http.ErrHandlerTimeout)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.JSONEq(t, `{"error":{"code":"INTERNAL","message":"internal error"}}`, rr.Body.String())
}

func TestAppErrorMatchesByCode(t *testing.T) {
	base := NewAppError("CHECKOUT_NOT_READY", "not ready", http.StatusUnprocessableEntity, nil)
	detailed := base.WithDetails(map[string]any{"violations": []string{"email"}})
	wrapped := fmt.Errorf("submit: %w", detailed)

	require.ErrorIs(t, wrapped, base)
	require.NotErrorIs(t, wrapped, NewAppError("CHECKOUT_REJECTED", "", 0, nil))
	require.Nil(t, base.Details)
	require.Equal(t, http.StatusUnprocessableEntity, StatusOf(wrapped))
	require.Equal(t, "CHECKOUT_NOT_READY: not ready", detailed.Error())
}

func TestAppErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewAppError("CHECKOUT_UNAVAILABLE", "try again", http.StatusServiceUnavailable, cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "CHECKOUT_UNAVAILABLE: dial tcp: refused", err.Error())
	require.Equal(t, http.StatusBadRequest, StatusOf(&AppError{Code: "X"}))
	require.Equal(t, http.StatusInternalServerError, StatusOf(cause))
}

func TestJSONEncodingFailureBecomesInternalError(t *testing.T) {
	rr := httptest.NewRecorder()
	JSON(rr, http.StatusOK, map[string]any{"bad": make(chan int)})
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.JSONEq(t, `{"error":{"code":"INTERNAL","message":"response encoding failed"}}`, rr.Body.String())
}

func TestDataEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	Data(rr, http.StatusCreated, map[string]string{"cartId": "c1"})
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.JSONEq(t, `{"data":{"cartId":"c1"}}`, rr.Body.String())
}
