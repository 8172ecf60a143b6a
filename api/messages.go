// Package api defines the namereg.v1.Registry gRPC service: its messages,
// the service descriptor used by servers and a typed client stub.
package api

import (
	"time"

	"github.com/jathurchan/namereg/types"
)

// MakeCommitmentRequest asks for the fingerprint of (name, owner, salt).
type MakeCommitmentRequest struct {
	Name  string        `json:"name"`
	Owner types.Address `json:"owner"`
	Salt  types.Salt    `json:"salt"`
}

type MakeCommitmentResponse struct {
	Name        types.Name        `json:"name"`
	Fingerprint types.Fingerprint `json:"fingerprint"`
}

type RentPriceRequest struct {
	Name string `json:"name"`
}

// RentPriceResponse splits Price into the retained fee and the escrowed bond.
type RentPriceResponse struct {
	Name       types.Name   `json:"name"`
	Price      types.Amount `json:"price"`
	Fee        types.Amount `json:"fee"`
	LockAmount types.Amount `json:"lock_amount"`
}

type GetPolicyRequest struct{}

type GetPolicyResponse struct {
	LockAmount       types.Amount  `json:"lock_amount"`
	LockPeriod       time.Duration `json:"lock_period"`
	MinCommitmentAge time.Duration `json:"min_commitment_age"`
	MaxCommitmentAge time.Duration `json:"max_commitment_age"`
}

// CommitRequest admits Fingerprint on behalf of Caller.
type CommitRequest struct {
	Caller      types.Address     `json:"caller"`
	Value       types.Amount      `json:"value"`
	Fingerprint types.Fingerprint `json:"fingerprint"`
}

// RegisterRequest reveals a commitment. Value must cover the rent price.
type RegisterRequest struct {
	Caller types.Address `json:"caller"`
	Value  types.Amount  `json:"value"`
	Name   string        `json:"name"`
	Owner  types.Address `json:"owner"`
	Salt   types.Salt    `json:"salt"`
}

type RenewRequest struct {
	Caller types.Address `json:"caller"`
	Value  types.Amount  `json:"value"`
	Name   string        `json:"name"`
}

type WithdrawEscrowRequest struct {
	Caller types.Address `json:"caller"`
	Value  types.Amount  `json:"value"`
	Name   string        `json:"name"`
}

type DepositRequest struct {
	Account types.Address `json:"account"`
	Amount  types.Amount  `json:"amount"`
}

// TxResponse is returned by every state-changing call.
type TxResponse struct {
	Index     types.Index    `json:"index"`
	TxID      string         `json:"tx_id"`
	Timestamp time.Time      `json:"timestamp"`
	Receipt   *types.Receipt `json:"receipt"`
}

type GetRecordRequest struct {
	Name string `json:"name"`
}

// GetRecordResponse carries the record as of the ledger time AsOf.
type GetRecordResponse struct {
	Record *types.RecordInfo `json:"record"`
	AsOf   time.Time         `json:"as_of"`
}

// ListRecordsRequest filters by Owner when set and by State when it is
// "active", "expired" or "withdrawable".
type ListRecordsRequest struct {
	Owner  types.Address `json:"owner,omitempty"`
	State  string        `json:"state,omitempty"`
	Limit  int           `json:"limit,omitempty"`
	Offset int           `json:"offset,omitempty"`
}

type ListRecordsResponse struct {
	Records []*types.RecordInfo `json:"records"`
	Total   int                 `json:"total"`
	AsOf    time.Time           `json:"as_of"`
}

type GetCommitmentRequest struct {
	Fingerprint types.Fingerprint `json:"fingerprint"`
}

type GetCommitmentResponse struct {
	Commitment *types.CommitmentInfo `json:"commitment"`
}

type GetBalanceRequest struct {
	Account types.Address `json:"account"`
}

type GetBalanceResponse struct {
	Account types.Address `json:"account"`
	Balance types.Amount  `json:"balance"`
}

// ListBalancesRequest asks for every non-zero balance on the ledger.
type ListBalancesRequest struct{}

type ListBalancesResponse struct {
	Balances  []types.AccountBalance `json:"balances"`
	LastIndex types.Index            `json:"last_index"`
}

type HealthRequest struct{}

type HealthResponse struct {
	Healthy   bool        `json:"healthy"`
	LastIndex types.Index `json:"last_index"`
	Now       time.Time   `json:"now"`
	Message   string      `json:"message,omitempty"`
}
