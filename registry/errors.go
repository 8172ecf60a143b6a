package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCommitment is the class of reveal failures caused by the commitment:
	// absent, too young, or too old. Match it with errors.Is.
	ErrInvalidCommitment = errors.New("registry: invalid commitment")

	// ErrCommitmentNotFound indicates the re-derived fingerprint was never admitted.
	ErrCommitmentNotFound = fmt.Errorf("%w: no commitment for fingerprint", ErrInvalidCommitment)

	// ErrCommitmentTooYoung indicates a reveal before minCommitmentAge elapsed.
	ErrCommitmentTooYoung = fmt.Errorf("%w: commitment too young", ErrInvalidCommitment)

	// ErrCommitmentTooOld indicates a reveal after maxCommitmentAge elapsed.
	ErrCommitmentTooOld = fmt.Errorf("%w: commitment too old", ErrInvalidCommitment)

	// ErrNameNotAvailable indicates the name has an active record.
	ErrNameNotAvailable = errors.New("registry: name not available")

	// ErrNameNotActive indicates a renewal target that is missing or expired.
	ErrNameNotActive = errors.New("registry: name not active")

	// ErrInsufficientPayment indicates tendered value below the rent price.
	ErrInsufficientPayment = errors.New("registry: insufficient payment")

	// ErrNotOwner indicates a withdrawal by someone other than the record owner.
	ErrNotOwner = errors.New("registry: caller is not the record owner")

	// ErrNotExpired indicates a withdrawal while the record is still active.
	ErrNotExpired = errors.New("registry: record not expired")

	// ErrNothingToWithdraw indicates no escrow is claimable for the caller.
	ErrNothingToWithdraw = errors.New("registry: nothing to withdraw")

	// ErrRecordNotFound indicates a lookup for a name that was never registered.
	ErrRecordNotFound = errors.New("registry: record not found")

	// ErrInvalidName indicates a name that cannot be canonicalized.
	ErrInvalidName = errors.New("registry: invalid name")

	// ErrInvalidOwner indicates an empty or malformed owner address.
	ErrInvalidOwner = errors.New("registry: invalid owner")

	// ErrUnknownOperation indicates a command whose Op the registry does not handle.
	ErrUnknownOperation = errors.New("registry: unknown operation")

	// ErrAlreadyApplied indicates a transaction index at or below the last applied one.
	ErrAlreadyApplied = errors.New("registry: transaction already applied")

	// ErrClosed indicates use of a registry after Close.
	ErrClosed = errors.New("registry: closed")
)

// ConfigError represents an invalid registry configuration.
type ConfigError struct {
	Message string
}

// NewConfigError returns a new ConfigError instance.
func NewConfigError(msg string) *ConfigError {
	return &ConfigError{Message: msg}
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "registry config error: " + e.Message
}

// reasons maps each domain error to a stable, machine-readable reason.
// Order matters: specific commitment errors precede ErrInvalidCommitment.
var reasons = []struct {
	err    error
	reason string
}{
	{ErrCommitmentNotFound, "COMMITMENT_NOT_FOUND"},
	{ErrCommitmentTooYoung, "COMMITMENT_TOO_YOUNG"},
	{ErrCommitmentTooOld, "COMMITMENT_TOO_OLD"},
	{ErrInvalidCommitment, "INVALID_COMMITMENT"},
	{ErrNameNotAvailable, "NAME_NOT_AVAILABLE"},
	{ErrNameNotActive, "NAME_NOT_ACTIVE"},
	{ErrInsufficientPayment, "INSUFFICIENT_PAYMENT"},
	{ErrNotOwner, "NOT_OWNER"},
	{ErrNotExpired, "NOT_EXPIRED"},
	{ErrNothingToWithdraw, "NOTHING_TO_WITHDRAW"},
	{ErrRecordNotFound, "RECORD_NOT_FOUND"},
	{ErrInvalidName, "INVALID_NAME"},
	{ErrInvalidOwner, "INVALID_OWNER"},
	{ErrUnknownOperation, "UNKNOWN_OPERATION"},
	{ErrAlreadyApplied, "ALREADY_APPLIED"},
	{ErrClosed, "CLOSED"},
}

// Reason returns the stable reason code for a registry error, or "" if err
// is nil or not a registry error.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ""
}

// ErrorForReason is the inverse of Reason. It returns nil for unknown codes.
func ErrorForReason(reason string) error {
	for _, r := range reasons {
		if r.reason == reason {
			return r.err
		}
	}
	return nil
}
