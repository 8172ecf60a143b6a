package client

import (
	"context"

	"github.com/jathurchan/namereg/api"
	"github.com/jathurchan/namereg/types"
)

// RegistryClient is a high-level client for a namereg server.
// It abstracts gRPC communication and provides typed methods for the
// commit-reveal registration flow, renewals and escrow withdrawal.
//
// Failures carry the ledger and registry sentinels, so callers can test
// them with errors.Is, for example errors.Is(err, registry.ErrCommitmentTooYoung).
// All operations are context-aware and honor cancellation and timeouts.
type RegistryClient interface {
	// MakeCommitment returns the fingerprint binding name, owner and salt.
	// It has no side effects.
	MakeCommitment(ctx context.Context, name string, owner types.Address, salt types.Salt) (types.Fingerprint, error)

	// RentPrice quotes the price of registering or renewing name.
	RentPrice(ctx context.Context, name string) (*api.RentPriceResponse, error)

	// Policy returns the registry's lock amount, term and commitment window.
	Policy(ctx context.Context) (*api.GetPolicyResponse, error)

	// Commit admits a fingerprint. Any tendered value is refunded.
	//
	// Possible errors:
	//   - registry.ErrInvalidCommitment: the fingerprint is still live
	Commit(ctx context.Context, caller types.Address, fingerprint types.Fingerprint) (*api.TxResponse, error)

	// Register reveals a commitment and claims the name for owner.
	//
	// Possible errors:
	//   - registry.ErrCommitmentNotFound, ErrCommitmentTooYoung, ErrCommitmentTooOld
	//   - registry.ErrNameNotAvailable: the name is held by someone else
	//   - registry.ErrInsufficientPayment: value is below the rent price
	//   - ledger.ErrInsufficientFunds: caller cannot cover value
	Register(ctx context.Context, req *api.RegisterRequest) (*api.TxResponse, error)

	// Renew extends an active registration. Anyone may pay for a renewal.
	//
	// Possible errors:
	//   - registry.ErrNameNotActive
	//   - registry.ErrInsufficientPayment
	Renew(ctx context.Context, caller types.Address, name string, value types.Amount) (*api.TxResponse, error)

	// WithdrawEscrow releases the bond of an expired name to its last owner.
	//
	// Possible errors:
	//   - registry.ErrNotOwner, registry.ErrNotExpired, registry.ErrNothingToWithdraw
	WithdrawEscrow(ctx context.Context, caller types.Address, name string) (*api.TxResponse, error)

	// Deposit credits account on servers that accept deposits.
	Deposit(ctx context.Context, account types.Address, amount types.Amount) (*api.TxResponse, error)

	// GetRecord returns the record for name evaluated at the ledger's current time.
	GetRecord(ctx context.Context, name string) (*api.GetRecordResponse, error)

	// ListRecords returns a page of records matching the filter.
	ListRecords(ctx context.Context, req *api.ListRecordsRequest) (*api.ListRecordsResponse, error)

	// GetCommitment returns when fingerprint was admitted.
	GetCommitment(ctx context.Context, fingerprint types.Fingerprint) (*types.CommitmentInfo, error)

	// Balance returns the balance of account.
	Balance(ctx context.Context, account types.Address) (types.Amount, error)

	// Balances returns every account holding value, sorted by account.
	Balances(ctx context.Context) (*api.ListBalancesResponse, error)

	// Health reports whether the server's ledger passes its audit.
	Health(ctx context.Context) (*api.HealthResponse, error)

	// Metrics returns client-side request metrics.
	Metrics() ClientMetrics

	// Close shuts down the client, releasing all resources and closing connections.
	// The client must not be used after Close is called.
	Close() error
}
