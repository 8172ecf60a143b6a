package registry

import (
	"context"
	"fmt"

	"github.com/jathurchan/namereg/types"
)

// ApplyWithdraw releases the caller's matured bond for name.
func (r *registry) ApplyWithdraw(ctx context.Context, tx types.TxContext, name string) (*types.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	return r.withdrawLocked(tx, name)
}

// withdrawLocked pays the caller every bond of theirs that is matured under
// name: the bond of their own expired record and any bond they left behind
// when the name was recycled by someone else.
func (r *registry) withdrawLocked(tx types.TxContext, rawName string) (*types.Receipt, error) {
	const op = types.OperationWithdraw

	name, err := CanonicalName(rawName)
	if err != nil {
		return nil, r.reject(op, err)
	}

	key := bondKey{name: name, owner: tx.Caller}
	matured := r.lapsed[key]

	rec, exists := r.records[name]
	ownsExpired := exists && rec.owner == tx.Caller && !rec.active(tx.Now)
	if ownsExpired {
		if matured, err = matured.Add(rec.escrow); err != nil {
			return nil, r.reject(op, err)
		}
	}

	if matured == 0 {
		switch {
		case !exists:
			err = fmt.Errorf("%w: %q has no record", ErrNothingToWithdraw, name)
		case rec.owner != tx.Caller:
			err = fmt.Errorf("%w: %q", ErrNotOwner, name)
		case rec.active(tx.Now):
			err = fmt.Errorf("%w: %q locked until %s", ErrNotExpired, name, rec.expiresAt.UTC())
		default:
			err = fmt.Errorf("%w: escrow for %q already released", ErrNothingToWithdraw, name)
		}
		return nil, r.reject(op, err)
	}

	delete(r.lapsed, key)
	if ownsExpired {
		rec.escrow = 0
	}

	r.metrics.IncrApply(op, true, "")
	r.metrics.ObserveEscrowReleased(matured)
	r.logger.WithTx(uint64(tx.Index)).Infow("Escrow released",
		"name", name, "owner", tx.Caller, "amount", matured)

	receipt := &types.Receipt{
		Op:       op,
		Refund:   tx.Value,
		Payout:   matured,
		PayoutTo: tx.Caller,
	}
	if exists {
		receipt.Record = rec.info(tx.Now)
	}
	return receipt, nil
}
