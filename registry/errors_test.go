package registry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jathurchan/namereg/testutil"
)

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("other"), ""},
		{ErrCommitmentTooYoung, "COMMITMENT_TOO_YOUNG"},
		{fmt.Errorf("wrapped: %w", ErrCommitmentTooOld), "COMMITMENT_TOO_OLD"},
		{ErrInvalidCommitment, "INVALID_COMMITMENT"},
		{fmt.Errorf("%w: tendered 1", ErrInsufficientPayment), "INSUFFICIENT_PAYMENT"},
		{ErrNothingToWithdraw, "NOTHING_TO_WITHDRAW"},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.err), func(t *testing.T) {
			testutil.AssertEqual(t, tc.want, Reason(tc.err))
		})
	}
}

func TestErrorForReason(t *testing.T) {
	for _, r := range reasons {
		got := ErrorForReason(r.reason)
		testutil.AssertTrue(t, errors.Is(got, r.err), "reason %s", r.reason)
		testutil.AssertEqual(t, r.reason, Reason(got))
	}
	testutil.AssertNil(t, ErrorForReason("NOPE"))
	testutil.AssertErrorIs(t, ErrorForReason("COMMITMENT_NOT_FOUND"), ErrInvalidCommitment)
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("bad")
	testutil.AssertEqual(t, "registry config error: bad", err.Error())
}
