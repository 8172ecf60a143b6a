package client

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jathurchan/namereg/ledger"
	"github.com/jathurchan/namereg/server"
)

// Common client errors. Domain failures are reported with the ledger and
// registry sentinels, so callers can use errors.Is(err, registry.ErrNotOwner).
var (
	// ErrInvalidArgument is returned when the server rejects request parameters.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnavailable is returned when the service is unavailable.
	ErrUnavailable = errors.New("service unavailable")

	// ErrRateLimit is returned when the request is rate limited.
	ErrRateLimit = errors.New("request rate limited")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("operation timed out")

	// ErrClientClosed is returned when attempting to use a closed client.
	ErrClientClosed = errors.New("client is closed")

	// ErrNoEndpoints is returned when a client is configured without endpoints.
	ErrNoEndpoints = errors.New("at least one endpoint must be provided")
)

// ErrorFromReason converts a server reason into a Go error. Ledger and
// registry reasons map back to their sentinels.
func ErrorFromReason(reason string) error {
	switch reason {
	case server.ReasonInvalidArgument:
		return ErrInvalidArgument
	case server.ReasonRateLimited:
		return ErrRateLimit
	case server.ReasonUnavailable:
		return ErrUnavailable
	case "":
		return nil
	}
	if err := ledger.ErrorForReason(reason); err != nil {
		return err
	}
	return fmt.Errorf("unknown error reason: %s", reason)
}

// ClientError wraps an error with additional client context.
type ClientError struct {
	Op     string     // Operation that failed
	Err    error      // Underlying error
	Reason string     // Reason reported by the server, if any
	Code   codes.Code // gRPC status code
	Msg    string     // Server message
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("client %s failed: %v (reason: %s, code: %v): %s", e.Op, e.Err, e.Reason, e.Code, e.Msg)
	}
	return fmt.Sprintf("client %s failed: %v (code: %v)", e.Op, e.Err, e.Code)
}

// Unwrap returns the underlying error.
func (e *ClientError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target error.
func (e *ClientError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewClientError creates a new ClientError.
func NewClientError(op string, err error, reason string, code codes.Code, msg string) *ClientError {
	return &ClientError{
		Op:     op,
		Err:    err,
		Reason: reason,
		Code:   code,
		Msg:    msg,
	}
}

// translateError turns a gRPC status error into a ClientError whose Err is
// the sentinel matching the server's reason.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	reason := server.ReasonFromStatus(err)
	var base error
	switch {
	case reason != "":
		base = ErrorFromReason(reason)
	case st.Code() == codes.DeadlineExceeded:
		base = ErrTimeout
	case st.Code() == codes.Unavailable:
		base = ErrUnavailable
	case st.Code() == codes.Canceled:
		base = context.Canceled
	default:
		base = errors.New(st.Message())
	}
	return NewClientError(op, base, reason, st.Code(), st.Message())
}
