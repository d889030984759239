package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound    = errors.New("gateway: not found")
	ErrInvalidCID  = errors.New("gateway: invalid cid")
	ErrCIDMismatch = errors.New("gateway: cid mismatch")
	ErrUnavailable = errors.New("gateway: unavailable")
	ErrMalformed   = errors.New("gateway: malformed response")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsTransient reports failures where the content may exist but could not
// be reached: transport errors and non-404 error statuses.
func IsTransient(err error) bool { return errors.Is(err, ErrUnavailable) }

// StatusError is a non-2xx answer from the gateway.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("gateway: %s: HTTP %d", e.Op, e.Status)
	}
	return fmt.Sprintf("gateway: %s: HTTP %d: %s", e.Op, e.Status, e.Body)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound || e.Status == http.StatusGone || isLikelyNotFound(e.Body)
	case ErrUnavailable:
		return !(e.Status == http.StatusNotFound || e.Status == http.StatusGone || isLikelyNotFound(e.Body))
	default:
		return false
	}
}
