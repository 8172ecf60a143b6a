package registry

import (
	"testing"
	"time"

	"github.com/jathurchan/namereg/testutil"
	"github.com/jathurchan/namereg/types"
)

func TestComputeFingerprint(t *testing.T) {
	salt := testutil.SaltFromSeed(1)
	base := ComputeFingerprint("alpha", alice, salt)

	t.Run("deterministic", func(t *testing.T) {
		testutil.AssertEqual(t, base, ComputeFingerprint("alpha", alice, salt))
	})

	t.Run("sensitive to every input", func(t *testing.T) {
		testutil.AssertNotEqual(t, base, ComputeFingerprint("alphb", alice, salt))
		testutil.AssertNotEqual(t, base, ComputeFingerprint("alpha", bob, salt))
		testutil.AssertNotEqual(t, base, ComputeFingerprint("alpha", alice, testutil.SaltFromSeed(2)))
	})

	t.Run("field boundaries are unambiguous", func(t *testing.T) {
		a := ComputeFingerprint("ab", "c", salt)
		b := ComputeFingerprint("a", "bc", salt)
		testutil.AssertNotEqual(t, a, b)
	})

	t.Run("not the zero value", func(t *testing.T) {
		testutil.AssertFalse(t, base.IsZero())
	})
}

func TestCommitmentStore(t *testing.T) {
	cs := newCommitmentStore()
	fp := types.Fingerprint{1}
	minAge, maxAge := time.Minute, time.Hour

	testutil.AssertErrorIs(t, cs.checkAge(fp, genesis, minAge, maxAge), ErrCommitmentNotFound)

	testutil.AssertEqual(t, genesis, cs.submit(fp, genesis))
	at, ok := cs.lookup(fp)
	testutil.AssertTrue(t, ok)
	testutil.AssertEqual(t, genesis, at)

	testutil.AssertErrorIs(t, cs.checkAge(fp, genesis.Add(minAge-1), minAge, maxAge), ErrCommitmentTooYoung)
	testutil.AssertNoError(t, cs.checkAge(fp, genesis.Add(minAge), minAge, maxAge))
	testutil.AssertNoError(t, cs.checkAge(fp, genesis.Add(maxAge), minAge, maxAge))
	testutil.AssertErrorIs(t, cs.checkAge(fp, genesis.Add(maxAge+1), minAge, maxAge), ErrCommitmentTooOld)

	cs.submit(types.Fingerprint{2}, genesis.Add(maxAge))
	testutil.AssertEqual(t, 0, cs.prune(genesis.Add(maxAge), maxAge), "an entry exactly maxAge old is still redeemable")
	testutil.AssertEqual(t, 1, cs.prune(genesis.Add(maxAge+1), maxAge))
	testutil.AssertEqual(t, 1, cs.len())
}
