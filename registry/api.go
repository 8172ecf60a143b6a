package registry

import (
	"context"
	"time"

	"github.com/jathurchan/namereg/types"
)

// Registry is the name registration state machine. It is the application
// applied by the ledger: every mutating method runs inside exactly one ledger
// transaction, receives that transaction's context (caller, tendered value and
// ledger time) and either fully succeeds or leaves state untouched.
//
// The registry never moves value itself. Successful operations return a
// Receipt describing what the ledger must accept, refund and pay out.
//
// Notes:
//   - All methods are thread-safe; mutations are serialized.
//   - Preconditions are evaluated against current state on every call.
//   - tx.Now is the only source of time for preconditions.
type Registry interface {
	// Apply decodes a ledger command and routes it to the matching operation.
	// A command whose tx.Index is at or below the last applied index is
	// rejected with ErrAlreadyApplied.
	Apply(ctx context.Context, tx types.TxContext, command []byte) (*types.Receipt, error)

	// MakeCommitment canonicalizes name and returns the fingerprint a caller
	// must commit before registering it for owner with salt.
	MakeCommitment(name string, owner types.Address, salt types.Salt) (types.Fingerprint, error)

	// RentPrice quotes the price of registering or renewing name.
	// Returns ErrInvalidName if name cannot be canonicalized.
	RentPrice(name string) (types.Amount, error)

	// ApplyCommit admits fp at tx.Now, overwriting any earlier admission.
	// Any tendered value is refunded.
	ApplyCommit(ctx context.Context, tx types.TxContext, fp types.Fingerprint) (*types.Receipt, error)

	// ApplyRegister reveals a commitment and creates or recycles the record.
	//
	// Returns:
	//   - a Receipt with Fee, Escrowed and Refund summing to tx.Value.
	//   - ErrCommitmentNotFound, ErrCommitmentTooYoung, ErrCommitmentTooOld
	//     (all ErrInvalidCommitment), ErrNameNotAvailable, ErrInsufficientPayment,
	//     ErrInvalidName or ErrInvalidOwner.
	ApplyRegister(ctx context.Context, tx types.TxContext, name string, owner types.Address, salt types.Salt) (*types.Receipt, error)

	// ApplyRenew sets an active record's expiry to tx.Now + LockPeriod.
	//
	// Returns:
	//   - a Receipt with Fee and Refund summing to tx.Value.
	//   - ErrNameNotActive, ErrInsufficientPayment or ErrInvalidName.
	ApplyRenew(ctx context.Context, tx types.TxContext, name string) (*types.Receipt, error)

	// ApplyWithdraw releases matured escrow for name to tx.Caller.
	//
	// Returns:
	//   - a Receipt whose Payout goes to tx.Caller.
	//   - ErrNothingToWithdraw, ErrNotOwner or ErrNotExpired.
	ApplyWithdraw(ctx context.Context, tx types.TxContext, name string) (*types.Receipt, error)

	// GetRecord returns the record for name with its state evaluated at `at`.
	// Returns ErrRecordNotFound if the name was never registered.
	GetRecord(ctx context.Context, name string, at time.Time) (*types.RecordInfo, error)

	// GetRecords returns records matching filter, sorted by name, paginated.
	// If limit <= 0, all items from offset are returned.
	GetRecords(ctx context.Context, at time.Time, filter RecordFilter, limit, offset int) (records []*types.RecordInfo, total int, err error)

	// GetCommitment returns the admission of fp.
	// Returns ErrCommitmentNotFound if fp was never admitted or was pruned.
	GetCommitment(ctx context.Context, fp types.Fingerprint) (*types.CommitmentInfo, error)

	// Holdings reports the value the registry is accountable for.
	Holdings() Holdings

	// Policy returns the immutable deployment constants.
	Policy() Policy

	// Tick accounts for records that lapsed up to now and prunes commitments
	// that can no longer be revealed. It never changes the outcome of any
	// later transaction. Returns the number of lapsed records.
	Tick(ctx context.Context, now time.Time) (expiredCount int)

	// Snapshot serializes the registry's tables and the last applied index.
	Snapshot(ctx context.Context) (lastApplied types.Index, data []byte, err error)

	// RestoreSnapshot replaces all state with a previously taken snapshot.
	RestoreSnapshot(ctx context.Context, data []byte) error

	// Close rejects further use.
	Close() error
}

// Policy is the set of deployment constants, fixed for a registry's lifetime.
type Policy struct {
	LockAmount       types.Amount
	LockPeriod       time.Duration
	MinCommitmentAge time.Duration
	MaxCommitmentAge time.Duration
}

// Holdings breaks down the value held on behalf of the registry.
// Their total must equal the registry account's balance on the ledger.
type Holdings struct {
	// Fees is retained rent.
	Fees types.Amount

	// Escrow is bond locked in current records.
	Escrow types.Amount

	// LapsedBonds is bond of previous owners of recycled names, still claimable.
	LapsedBonds types.Amount
}

// Total returns Fees + Escrow + LapsedBonds.
func (h Holdings) Total() (types.Amount, error) {
	sum, err := h.Fees.Add(h.Escrow)
	if err != nil {
		return 0, err
	}
	return sum.Add(h.LapsedBonds)
}
