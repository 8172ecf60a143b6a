package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/jathurchan/namereg/clock"
	"github.com/jathurchan/namereg/registry"
	"github.com/jathurchan/namereg/testutil"
	"github.com/jathurchan/namereg/types"
)

var genesis = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	alice = types.Address("0xa11ce")
	bob   = types.Address("0xb0b")
)

type testLedger struct {
	*Ledger
	clock *clock.Manual
}

func newTestLedger(t *testing.T, journal Journal, opts ...Option) *testLedger {
	t.Helper()
	reg, err := registry.NewRegistry()
	testutil.RequireNoError(t, err)

	clk := clock.NewManual(genesis)
	opts = append([]Option{WithClock(clk), WithJournal(journal), WithDeposits(true)}, opts...)
	l, err := New(context.Background(), reg, opts...)
	testutil.RequireNoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return &testLedger{Ledger: l, clock: clk}
}

func (tl *testLedger) fund(t *testing.T, account types.Address, amount types.Amount) {
	t.Helper()
	_, err := tl.Deposit(context.Background(), account, amount)
	testutil.RequireNoError(t, err)
}

// register commits, waits the minimum age and reveals name for owner.
func (tl *testLedger) register(t *testing.T, name string, owner types.Address, value types.Amount) *Result {
	t.Helper()
	ctx := context.Background()
	salt := testutil.SaltFromSeed(byte(len(name)))
	fp, err := tl.Registry().MakeCommitment(name, owner, salt)
	testutil.RequireNoError(t, err)

	_, err = tl.Submit(ctx, Transaction{Caller: owner, Command: types.Command{Op: types.OperationCommit, Fingerprint: fp}})
	testutil.RequireNoError(t, err)

	tl.clock.Advance(registry.DefaultMinCommitmentAge)
	res, err := tl.Submit(ctx, Transaction{
		Caller:  owner,
		Value:   value,
		Command: types.Command{Op: types.OperationRegister, Name: name, Owner: owner, Salt: salt},
	})
	testutil.RequireNoError(t, err)
	return res
}
