package ai

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusUnauthorized, ErrAuth},
		{http.StatusForbidden, ErrAuth},
		{http.StatusRequestTimeout, ErrTimeout},
		{http.StatusGatewayTimeout, ErrTimeout},
		{http.StatusInternalServerError, ErrConnection},
		{http.StatusBadGateway, ErrConnection},
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusNotFound, ErrBadRequest},
	}
	for _, tc := range cases {
		err := statusError("test", tc.status, "body")
		require.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}
}

func TestTransportErrorMapping(t *testing.T) {
	err := transportError("test", context.DeadlineExceeded)
	require.ErrorIs(t, err, ErrTimeout)

	err = transportError("test", errors.New("connection refused"))
	require.ErrorIs(t, err, ErrConnection)
}

func TestIsTransient(t *testing.T) {
	require.True(t, IsTransient(statusError("p", http.StatusTooManyRequests, "")))
	require.True(t, IsTransient(statusError("p", http.StatusServiceUnavailable, "")))
	require.False(t, IsTransient(statusError("p", http.StatusUnauthorized, "")))
	require.False(t, IsTransient(statusError("p", http.StatusBadRequest, "")))
	require.False(t, IsTransient(ErrUnavailable))
	require.False(t, IsTransient(nil))
}
