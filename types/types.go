package types

import "time"

// Name is a registrable label in its canonical form (see registry.CanonicalName).
type Name string

// Address identifies an account on the ledger: a name owner, a payer or a payee.
type Address string

// Amount is a quantity of value in the ledger's smallest unit.
type Amount uint64

// Index is the position of a transaction in the ledger journal.
// Indices start at 1 and increase with each appended entry.
type Index uint64

// Fingerprint is the Keccak-256 commitment to a (name, owner, salt) triple.
type Fingerprint [32]byte

// Salt is the caller-chosen secret mixed into a Fingerprint.
type Salt [32]byte

// Operation names a state transition carried by a ledger Command.
type Operation string

const (
	// OperationCommit admits a commitment fingerprint.
	OperationCommit Operation = "commit"

	// OperationRegister reveals a commitment and claims a name.
	OperationRegister Operation = "register"

	// OperationRenew extends an active registration.
	OperationRenew Operation = "renew"

	// OperationWithdraw releases a matured escrow bond to its owner.
	OperationWithdraw Operation = "withdraw"

	// OperationDeposit mints value into an account. Handled by the ledger itself.
	OperationDeposit Operation = "deposit"
)

// Command is the payload of a ledger transaction.
// Fields that do not apply to Op are left at their zero value.
type Command struct {
	Op          Operation   `json:"op"`
	Name        string      `json:"name,omitempty"`
	Owner       Address     `json:"owner,omitempty"`
	Salt        Salt        `json:"salt"`
	Fingerprint Fingerprint `json:"fingerprint"`
	Amount      Amount      `json:"amount,omitempty"`
}

// TxContext is the execution context the ledger hands to the registry for a
// single transaction. Now is always the ledger's timestamp, never the caller's.
type TxContext struct {
	Index  Index
	ID     string
	Caller Address
	Value  Amount
	Now    time.Time
}

// RecordState is the lifecycle position of a name.
type RecordState int

const (
	// StateUnclaimed means no record exists for the name.
	StateUnclaimed RecordState = iota

	// StateActive means the name is held and now < ExpiresAt.
	StateActive

	// StateExpired means the registration lapsed; the name may be claimed again.
	StateExpired
)

// RecordInfo is a read-only view of a name record.
type RecordInfo struct {
	Name         Name        `json:"name"`
	Owner        Address     `json:"owner"`
	RegisteredAt time.Time   `json:"registered_at"`
	ExpiresAt    time.Time   `json:"expires_at"`
	Escrow       Amount      `json:"escrow"`
	Renewals     int         `json:"renewals"`
	State        RecordState `json:"state"`
}

// AccountBalance is an account and the value it holds on the ledger.
type AccountBalance struct {
	Account Address `json:"account"`
	Balance Amount  `json:"balance"`
}

// CommitmentInfo is a read-only view of an admitted commitment.
type CommitmentInfo struct {
	Fingerprint Fingerprint `json:"fingerprint"`
	AdmittedAt  time.Time   `json:"admitted_at"`
}

// Receipt describes the value movements and resulting state of a successful
// transaction. The ledger executes the movements; the registry only computes them.
type Receipt struct {
	Op Operation `json:"op"`

	// Fee is the part of the tendered value retained as non-refundable rent.
	Fee Amount `json:"fee"`

	// Escrowed is the part of the tendered value locked as a bond.
	Escrowed Amount `json:"escrowed"`

	// Refund is returned to the caller in the same transaction.
	Refund Amount `json:"refund"`

	// Payout is released from escrow to PayoutTo.
	Payout   Amount  `json:"payout"`
	PayoutTo Address `json:"payout_to,omitempty"`

	AdmittedAt time.Time   `json:"admitted_at"`
	Record     *RecordInfo `json:"record,omitempty"`
}
