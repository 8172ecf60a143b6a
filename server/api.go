package server

import (
	"context"
	"time"

	"github.com/jathurchan/namereg/api"
	"github.com/jathurchan/namereg/ledger"
	"github.com/jathurchan/namereg/registry"
	"github.com/jathurchan/namereg/types"
)

// RegistryServer serves the namereg.v1.Registry gRPC API on top of a ledger.
//
// Every state-changing RPC becomes exactly one ledger transaction; reads are
// answered from the registry as of the current ledger time.
type RegistryServer interface {
	api.RegistryServer

	// Start binds the listener and serves in the background. It also starts
	// the periodic maintenance loop when TickInterval is positive.
	//
	// Returns ErrServerAlreadyStarted if called twice.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the server. If ctx or ShutdownTimeout
	// expires first, in-flight RPCs are cancelled and ErrShutdownTimeout is returned.
	Stop(ctx context.Context) error

	// Addr returns the bound listener address, or "" before Start.
	Addr() string

	// Metrics returns the metrics sink used by the server.
	Metrics() ServerMetrics
}

// Ledger is the subset of *ledger.Ledger the server depends on.
type Ledger interface {
	Submit(ctx context.Context, tx ledger.Transaction) (*ledger.Result, error)
	Deposit(ctx context.Context, account types.Address, amount types.Amount) (*ledger.Result, error)
	Balance(account types.Address) types.Amount
	Balances() []types.AccountBalance
	Record(ctx context.Context, name string) (*types.RecordInfo, error)
	Records(ctx context.Context, filter registry.RecordFilter, limit, offset int) ([]*types.RecordInfo, int, error)
	Commitment(ctx context.Context, fp types.Fingerprint) (*types.CommitmentInfo, error)
	Registry() registry.Registry
	Now() time.Time
	LastIndex() types.Index
	Audit() error
	RunTicker(ctx context.Context, interval time.Duration)
}

var _ Ledger = (*ledger.Ledger)(nil)
