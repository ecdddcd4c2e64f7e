package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the failure classes callers are expected to branch on.
// Providers wrap these so errors.Is keeps working through fmt.Errorf chains.
var (
	ErrAuth        = errors.New("llm: authentication failed")
	ErrRateLimited = errors.New("llm: rate limit exceeded")
	ErrTimeout     = errors.New("llm: generation timed out")
)

// ClassifyHTTPStatus maps a provider HTTP status to a sentinel error, or nil
// for statuses that are not one of the typed failure classes.
func ClassifyHTTPStatus(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuth
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// WrapTransportErr converts context deadline expiry into ErrTimeout so call
// sites with a timeout see a typed error instead of a raw net error.
func WrapTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
