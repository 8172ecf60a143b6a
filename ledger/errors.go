package ledger

import (
	"errors"

	"github.com/jathurchan/namereg/registry"
)

var (
	// ErrInsufficientFunds is returned when the caller's balance cannot cover the tendered value.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrInvalidTransaction is returned for a transaction that is malformed before it reaches the registry.
	ErrInvalidTransaction = errors.New("ledger: invalid transaction")

	// ErrDepositsDisabled is returned when a deposit is submitted to a ledger that does not accept them.
	ErrDepositsDisabled = errors.New("ledger: deposits disabled")

	// ErrClosed is returned when the ledger is used after Close.
	ErrClosed = errors.New("ledger: closed")

	// ErrJournalIO is returned when a low-level I/O failure occurs while reading or writing the journal.
	ErrJournalIO = errors.New("ledger: journal I/O error")

	// ErrCorruptedJournal is returned when a journal entry is structurally invalid or fails its checksum.
	ErrCorruptedJournal = errors.New("ledger: corrupted journal entry")

	// ErrNonContiguousEntry is returned when an appended entry does not immediately follow the last index.
	ErrNonContiguousEntry = errors.New("ledger: entry is not contiguous with the journal")

	// ErrAuditFailed is returned when the registry account balance does not match the registry's holdings.
	ErrAuditFailed = errors.New("ledger: audit failed")

	// ErrBalanceOverflow is returned when a credit would overflow an account balance.
	ErrBalanceOverflow = errors.New("ledger: balance overflow")

	// ErrSnapshot is returned when a snapshot cannot be written or read.
	ErrSnapshot = errors.New("ledger: snapshot error")

	// ErrSnapshotMismatch is returned on open when the snapshot does not describe a prefix of the journal.
	ErrSnapshotMismatch = errors.New("ledger: snapshot does not match journal")

	// ErrSnapshotsDisabled is returned by Snapshot when no snapshot path is configured.
	ErrSnapshotsDisabled = errors.New("ledger: snapshots disabled")
)

// Reason returns the stable reason code for err, covering ledger errors and
// falling back to registry.Reason.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	case errors.Is(err, ErrInvalidTransaction):
		return "INVALID_TRANSACTION"
	case errors.Is(err, ErrDepositsDisabled):
		return "DEPOSITS_DISABLED"
	case errors.Is(err, ErrClosed):
		return "LEDGER_CLOSED"
	}
	return registry.Reason(err)
}

// ErrorForReason is the inverse of Reason.
func ErrorForReason(reason string) error {
	switch reason {
	case "INSUFFICIENT_FUNDS":
		return ErrInsufficientFunds
	case "INVALID_TRANSACTION":
		return ErrInvalidTransaction
	case "DEPOSITS_DISABLED":
		return ErrDepositsDisabled
	case "LEDGER_CLOSED":
		return ErrClosed
	}
	return registry.ErrorForReason(reason)
}
