package registry

import (
	"context"
	"testing"
	"time"

	"github.com/jathurchan/namereg/testutil"
	"github.com/jathurchan/namereg/types"
)

func TestRegistry_WithdrawAfterLockPeriod(t *testing.T) {
	ctx := context.Background()
	r, metrics := createTestRegistry(t)
	receipt := mustRegister(t, r, "alpha", alice, 0)
	expiry := receipt.Record.ExpiresAt.Sub(genesis)

	_, err := r.ApplyWithdraw(ctx, txAt(alice, 0, expiry-time.Nanosecond), "alpha")
	testutil.AssertErrorIs(t, err, ErrNotExpired)

	out, err := r.ApplyWithdraw(ctx, txAt(alice, 0, expiry), "alpha")
	testutil.RequireNoError(t, err)
	testutil.AssertAmount(t, DefaultLockAmount, out.Payout)
	testutil.AssertEqual(t, alice, out.PayoutTo)
	testutil.AssertAmount(t, 0, out.Record.Escrow)
	testutil.AssertAmount(t, DefaultLockAmount, metrics.released)

	_, err = r.ApplyWithdraw(ctx, txAt(alice, 0, expiry+time.Second), "alpha")
	testutil.AssertErrorIs(t, err, ErrNothingToWithdraw)

	testutil.AssertAmount(t, 0, r.Holdings().Escrow)
}

func TestRegistry_WithdrawErrors(t *testing.T) {
	ctx := context.Background()
	r, _ := createTestRegistry(t)
	mustRegister(t, r, "alpha", alice, 0)

	tests := []struct {
		name    string
		caller  types.Address
		label   string
		at      time.Duration
		wantErr error
	}{
		{"no record", alice, "ghost", 2 * year, ErrNothingToWithdraw},
		{"not owner while active", bob, "alpha", time.Hour, ErrNotOwner},
		{"not owner after expiry", bob, "alpha", 2 * year, ErrNotOwner},
		{"owner while active", alice, "alpha", time.Hour, ErrNotExpired},
		{"invalid name", alice, "-", time.Hour, ErrInvalidName},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.ApplyWithdraw(ctx, txAt(tc.caller, 0, tc.at), tc.label)
			testutil.AssertErrorIs(t, err, tc.wantErr)
		})
	}

	testutil.AssertAmount(t, DefaultLockAmount, r.Holdings().Escrow, "failed withdrawals must not move escrow")
}

func TestRegistry_WithdrawRefundsValue(t *testing.T) {
	r, _ := createTestRegistry(t)
	mustRegister(t, r, "alpha", alice, 0)

	out, err := r.ApplyWithdraw(context.Background(), txAt(alice, 5, 2*year), "alpha")
	testutil.RequireNoError(t, err)
	testutil.AssertAmount(t, 5, out.Refund)
	testutil.AssertAmount(t, DefaultLockAmount, out.Payout)
}

func TestRegistry_LapsedBondSurvivesRecycling(t *testing.T) {
	ctx := context.Background()
	r, _ := createTestRegistry(t)
	mustRegister(t, r, "alpha", alice, 0)

	// Bob claims the expired name before alice withdraws.
	salt := testutil.SaltFromSeed(42)
	fp, _ := r.MakeCommitment("alpha", bob, salt)
	_, _ = r.ApplyCommit(ctx, txAt(bob, 0, year), fp)
	_, err := r.ApplyRegister(ctx, txAt(bob, DefaultBaseNamePrice, year+time.Minute), "alpha", bob, salt)
	testutil.RequireNoError(t, err)

	h := r.Holdings()
	testutil.AssertAmount(t, DefaultLockAmount, h.Escrow)
	testutil.AssertAmount(t, DefaultLockAmount, h.LapsedBonds)

	t.Run("new owner cannot take the old bond", func(t *testing.T) {
		_, err := r.ApplyWithdraw(ctx, txAt(bob, 0, year+time.Hour), "alpha")
		testutil.AssertErrorIs(t, err, ErrNotExpired)
	})

	t.Run("stranger is not owner", func(t *testing.T) {
		_, err := r.ApplyWithdraw(ctx, txAt(carol, 0, year+time.Hour), "alpha")
		testutil.AssertErrorIs(t, err, ErrNotOwner)
	})

	t.Run("previous owner withdraws the lapsed bond", func(t *testing.T) {
		out, err := r.ApplyWithdraw(ctx, txAt(alice, 0, year+time.Hour), "alpha")
		testutil.RequireNoError(t, err)
		testutil.AssertAmount(t, DefaultLockAmount, out.Payout)
		testutil.AssertEqual(t, bob, out.Record.Owner)
		testutil.AssertAmount(t, DefaultLockAmount, out.Record.Escrow, "current owner's bond untouched")
	})

	t.Run("only once", func(t *testing.T) {
		_, err := r.ApplyWithdraw(ctx, txAt(alice, 0, year+2*time.Hour), "alpha")
		testutil.AssertErrorIs(t, err, ErrNotOwner)
		testutil.AssertAmount(t, 0, r.Holdings().LapsedBonds)
	})
}

func TestRegistry_ReclaimCombinesBonds(t *testing.T) {
	ctx := context.Background()
	r, _ := createTestRegistry(t)
	mustRegister(t, r, "alpha", alice, 0)

	// Bob recycles, lets it lapse, then alice takes it back.
	salt := testutil.SaltFromSeed(11)
	fp, _ := r.MakeCommitment("alpha", bob, salt)
	_, _ = r.ApplyCommit(ctx, txAt(bob, 0, year), fp)
	_, err := r.ApplyRegister(ctx, txAt(bob, DefaultBaseNamePrice, year+time.Minute), "alpha", bob, salt)
	testutil.RequireNoError(t, err)

	fp, _ = r.MakeCommitment("alpha", alice, salt)
	_, _ = r.ApplyCommit(ctx, txAt(alice, 0, 2*year+time.Hour), fp)
	_, err = r.ApplyRegister(ctx, txAt(alice, DefaultBaseNamePrice, 2*year+2*time.Hour), "alpha", alice, salt)
	testutil.RequireNoError(t, err)

	// Alice's lapsed bond is matured even though her new record is active.
	out, err := r.ApplyWithdraw(ctx, txAt(alice, 0, 2*year+3*time.Hour), "alpha")
	testutil.RequireNoError(t, err)
	testutil.AssertAmount(t, DefaultLockAmount, out.Payout)

	out, err = r.ApplyWithdraw(ctx, txAt(bob, 0, 2*year+3*time.Hour), "alpha")
	testutil.RequireNoError(t, err)
	testutil.AssertAmount(t, DefaultLockAmount, out.Payout)

	_, err = r.ApplyWithdraw(ctx, txAt(alice, 0, 2*year+3*time.Hour), "alpha")
	testutil.AssertErrorIs(t, err, ErrNotExpired)

	h := r.Holdings()
	testutil.AssertAmount(t, DefaultLockAmount, h.Escrow)
	testutil.AssertAmount(t, 0, h.LapsedBonds)
}
