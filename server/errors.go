package server

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jathurchan/namereg/ledger"
)

// ErrorDomain is carried in every ErrorInfo detail attached by this server.
const ErrorDomain = "namereg"

// Reasons produced by the transport layer itself. Ledger and registry
// reasons come from ledger.Reason.
const (
	ReasonInvalidArgument = "INVALID_ARGUMENT"
	ReasonRateLimited     = "RATE_LIMITED"
	ReasonUnavailable     = "UNAVAILABLE"
	ReasonInternal        = "INTERNAL"
)

var (
	// ErrServerNotStarted indicates the server has not been started or is not yet ready.
	ErrServerNotStarted = errors.New("server: server not started or not ready")

	// ErrServerAlreadyStarted indicates an attempt to start an already running server.
	ErrServerAlreadyStarted = errors.New("server: server already started")

	// ErrServerStopped indicates the server has been stopped and cannot process requests.
	ErrServerStopped = errors.New("server: server stopped")

	// ErrRateLimited indicates the request was rejected due to rate limiting policies.
	ErrRateLimited = errors.New("server: request rate limited")

	// ErrShutdownTimeout indicates the server's graceful shutdown process timed out.
	ErrShutdownTimeout = errors.New("server: shutdown timed out")

	// ErrDepositsDisabled indicates the Deposit RPC is not exposed by this server.
	ErrDepositsDisabled = errors.New("server: deposits are disabled")
)

// ValidationError represents a request validation error with details about the specific field.
type ValidationError struct {
	Field   string // The name of the field that failed validation.
	Value   any    // The value of the field that caused the error.
	Message string // A descriptive message explaining the validation failure.
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Error implements the error interface, providing a structured validation error message.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("server: validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// grpcCode maps a stable reason to the status code clients see.
func grpcCode(reason string) codes.Code {
	switch reason {
	case "COMMITMENT_NOT_FOUND", "COMMITMENT_TOO_YOUNG", "COMMITMENT_TOO_OLD", "INVALID_COMMITMENT",
		"NAME_NOT_ACTIVE", "NOT_EXPIRED", "INSUFFICIENT_PAYMENT", "INSUFFICIENT_FUNDS", "DEPOSITS_DISABLED":
		return codes.FailedPrecondition
	case "NAME_NOT_AVAILABLE":
		return codes.AlreadyExists
	case "NOT_OWNER":
		return codes.PermissionDenied
	case "NOTHING_TO_WITHDRAW", "RECORD_NOT_FOUND":
		return codes.NotFound
	case "INVALID_NAME", "INVALID_OWNER", "INVALID_TRANSACTION", "UNKNOWN_OPERATION", ReasonInvalidArgument:
		return codes.InvalidArgument
	case ReasonRateLimited:
		return codes.ResourceExhausted
	case "CLOSED", "LEDGER_CLOSED", ReasonUnavailable:
		return codes.Unavailable
	case "ALREADY_APPLIED":
		return codes.Aborted
	default:
		return codes.Internal
	}
}

// ReasonOf returns the stable reason code for err as reported to clients.
func ReasonOf(err error) string {
	var validationErr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr):
		return ReasonInvalidArgument
	case errors.Is(err, ErrRateLimited):
		return ReasonRateLimited
	case errors.Is(err, ErrDepositsDisabled):
		return "DEPOSITS_DISABLED"
	case errors.Is(err, ErrServerNotStarted), errors.Is(err, ErrServerStopped):
		return ReasonUnavailable
	}
	if reason := ledger.Reason(err); reason != "" {
		return reason
	}
	return ReasonInternal
}

// ToGRPCError converts an error from the ledger, the registry or this
// package into a gRPC status error. The reason travels in an ErrorInfo
// detail so clients can recover the original sentinel.
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}

	reason := ReasonOf(err)
	code := grpcCode(reason)
	msg := err.Error()
	if code == codes.Internal {
		msg = "an unexpected internal error occurred"
	}

	info := &errdetails.ErrorInfo{Reason: reason, Domain: ErrorDomain}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		info.Metadata = map[string]string{
			"field": validationErr.Field,
			"value": fmt.Sprintf("%v", validationErr.Value),
		}
		msg = validationErr.Message
	}

	st, detailErr := status.New(code, msg).WithDetails(info)
	if detailErr != nil {
		return status.Error(code, msg)
	}
	return st.Err()
}

// ReasonFromStatus extracts the reason attached by ToGRPCError, or "".
func ReasonFromStatus(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return info.GetReason()
		}
	}
	return ""
}
