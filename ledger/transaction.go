package ledger

import (
	"fmt"
	"time"

	"github.com/jathurchan/namereg/types"
)

// Transaction is a call submitted to the ledger. The ledger stamps it with
// an index, an ID and a timestamp; callers never supply time.
type Transaction struct {
	Caller  types.Address
	Value   types.Amount
	Command types.Command
}

// Result is the outcome of a successfully executed transaction.
type Result struct {
	Index     types.Index
	ID        string
	Timestamp time.Time
	Receipt   *types.Receipt
}

func (tx Transaction) validate(registryAccount types.Address) error {
	if tx.Caller == "" {
		return fmt.Errorf("%w: caller is required", ErrInvalidTransaction)
	}
	if tx.Caller == registryAccount {
		return fmt.Errorf("%w: the registry account cannot submit transactions", ErrInvalidTransaction)
	}
	switch tx.Command.Op {
	case types.OperationCommit, types.OperationRegister, types.OperationRenew, types.OperationWithdraw:
	case types.OperationDeposit:
		if tx.Value != 0 {
			return fmt.Errorf("%w: deposit cannot carry value", ErrInvalidTransaction)
		}
		if tx.Command.Amount == 0 {
			return fmt.Errorf("%w: deposit amount must be positive", ErrInvalidTransaction)
		}
		if tx.Command.Owner == registryAccount {
			return fmt.Errorf("%w: cannot deposit into the registry account", ErrInvalidTransaction)
		}
	default:
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidTransaction, tx.Command.Op)
	}
	return nil
}
