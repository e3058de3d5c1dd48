package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Failure taxonomy for external model calls. The retry wrapper consults
// IsTransient; everything else fails fast.
var (
	ErrRateLimited = errors.New("rate limited")
	ErrTimeout     = errors.New("request timed out")
	ErrConnection  = errors.New("connection failed")
	ErrAuth        = errors.New("authentication failed")
	ErrBadRequest  = errors.New("bad request")
	ErrUnavailable = errors.New("ai provider not configured")
)

func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnection)
}

// statusError maps an HTTP response to the taxonomy.
func statusError(provider string, status int, body string) error {
	body = strings.TrimSpace(body)
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s: %s", ErrRateLimited, provider, body)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s: %s", ErrAuth, provider, body)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s: %s", ErrTimeout, provider, body)
	case status >= 500:
		return fmt.Errorf("%w: %s: status %d: %s", ErrConnection, provider, status, body)
	default:
		return fmt.Errorf("%w: %s: status %d: %s", ErrBadRequest, provider, status, body)
	}
}

// transportError maps a client.Do failure to the taxonomy.
func transportError(provider string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %v", ErrTimeout, provider, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %s: %v", ErrTimeout, provider, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrConnection, provider, err)
	}
}
