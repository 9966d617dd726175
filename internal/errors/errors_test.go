package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pribylovaa/thinkedin/internal/moderation"
	"github.com/pribylovaa/thinkedin/internal/service"
	"github.com/stretchr/testify/require"
)

func TestToHTTP_BaseMapping(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("service/op: %w", err) }

	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantCode   string
	}{
		{"validation", wrap(service.ErrValidation), http.StatusBadRequest, "invalid_argument"},
		{"unauthenticated", wrap(service.ErrUnauthenticated), http.StatusUnauthorized, "unauthenticated"},
		{"unauthorized", wrap(service.ErrUnauthorized), http.StatusForbidden, "unauthorized"},
		{"anonymous_edit", fmt.Errorf("op: %w: %w", service.ErrUnauthorized, service.ErrUnauthenticated), http.StatusUnauthorized, "unauthenticated"},
		{"not_found", wrap(service.ErrNotFound), http.StatusNotFound, "not_found"},
		{"rate_limited", wrap(service.ErrRateLimited), http.StatusTooManyRequests, "rate_limited"},
		{"recommend_unavailable", wrap(service.ErrRecommendUnavailable), http.StatusServiceUnavailable, "recommend_unavailable"},
		{"store", wrap(service.ErrStoreUnavailable), http.StatusServiceUnavailable, "unavailable"},
		{"canceled", wrap(context.Canceled), StatusClientClosedRequest, "canceled"},
		{"deadline", wrap(context.DeadlineExceeded), http.StatusGatewayTimeout, "deadline_exceeded"},
		{"internal", fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			gotStatus, resp := ToHTTP(tc.in)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestToHTTP_Rejected_CarriesReason(t *testing.T) {
	err := fmt.Errorf("op: %w", &service.RejectedError{Reason: moderation.ReasonProfanity, Detail: "word"})

	gotStatus, resp := ToHTTP(err)
	require.Equal(t, http.StatusUnprocessableEntity, gotStatus)
	require.Equal(t, "rejected", resp.Error.Code)
	require.Equal(t, string(moderation.ReasonProfanity), resp.Error.Reason)
	require.NotContains(t, resp.Error.Message, "word")
}

func TestToHTTP_NilError_Returns500Internal(t *testing.T) {
	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "internal", resp.Error.Code)
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestWriteError_RequestID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/posts/1", nil)
	r.Header.Set("X-Request-Id", "rid-1")
	w := httptest.NewRecorder()

	WriteError(w, r, service.ErrNotFound)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "rid-1", resp.Error.RequestID)
	require.Equal(t, "not_found", resp.Error.Code)
}
