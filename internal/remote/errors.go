package remote

import (
	"fmt"
	"net/http"

	"github.com/driftbase/syncmw/internal/syncerr"
)

// isRetryable reports whether the HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// classify maps a terminal (non-retried) HTTP response to the
// error taxonomy.
func classify(code int, body string) error {
	switch {
	case code == http.StatusUnauthorized:
		// An invalid or expired credential is not recoverable by
		// refreshing the same token - the caller must re-authenticate
		// from scratch.
		return &syncerr.Auth{RequiresRefresh: false, Err: fmt.Errorf("remote: HTTP %d: %s", code, body)}
	case code == http.StatusTooManyRequests:
		return &syncerr.Quota{Err: fmt.Errorf("remote: HTTP %d: %s", code, body)}
	case code >= http.StatusInternalServerError:
		return &syncerr.Network{Retryable: true, Status: code, Err: fmt.Errorf("remote: HTTP %d: %s", code, body)}
	case code >= http.StatusBadRequest:
		return &syncerr.Network{Retryable: false, Status: code, Err: fmt.Errorf("remote: HTTP %d: %s", code, body)}
	default:
		return &syncerr.Unknown{Cause: fmt.Errorf("remote: unexpected HTTP %d: %s", code, body)}
	}
}
