package ledger

import (
	"fmt"
	"sort"

	"github.com/jathurchan/namereg/types"
)

// bank tracks account balances. It is not safe for concurrent use; the
// ledger serializes every access under its own mutex.
type bank struct {
	balances map[types.Address]types.Amount
	minted   types.Amount // Total ever deposited; equals the sum of balances.
}

func newBank() *bank {
	return &bank{balances: make(map[types.Address]types.Amount)}
}

func (b *bank) balance(account types.Address) types.Amount {
	return b.balances[account]
}

// mint credits amount to account out of thin air (deposits).
func (b *bank) mint(account types.Address, amount types.Amount) error {
	next, err := b.balances[account].Add(amount)
	if err != nil {
		return fmt.Errorf("%w: account %s", ErrBalanceOverflow, account)
	}
	minted, err := b.minted.Add(amount)
	if err != nil {
		return fmt.Errorf("%w: total supply", ErrBalanceOverflow)
	}
	b.balances[account] = next
	b.minted = minted
	return nil
}

// canTransfer reports whether transfer(from, to, amount) would succeed.
func (b *bank) canTransfer(from, to types.Address, amount types.Amount) error {
	if b.balances[from] < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, from, b.balances[from], amount)
	}
	if from != to {
		if _, err := b.balances[to].Add(amount); err != nil {
			return fmt.Errorf("%w: account %s", ErrBalanceOverflow, to)
		}
	}
	return nil
}

// transfer moves amount from one account to another, or nothing on error.
func (b *bank) transfer(from, to types.Address, amount types.Amount) error {
	if amount == 0 {
		return nil
	}
	if err := b.canTransfer(from, to, amount); err != nil {
		return err
	}
	b.balances[from] -= amount
	b.balances[to] += amount
	if b.balances[from] == 0 {
		delete(b.balances, from)
	}
	return nil
}

// accounts returns every account with a non-zero balance, sorted.
func (b *bank) accounts() []types.Address {
	out := make([]types.Address, 0, len(b.balances))
	for a := range b.balances {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// supply returns the sum of all balances.
func (b *bank) supply() (types.Amount, error) {
	var total types.Amount
	for _, v := range b.balances {
		var err error
		if total, err = total.Add(v); err != nil {
			return 0, err
		}
	}
	return total, nil
}
