package server

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jathurchan/namereg/ledger"
	"github.com/jathurchan/namereg/registry"
	"github.com/jathurchan/namereg/testutil"
)

func TestToGRPCError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   codes.Code
		wantReason string
	}{
		{"too young", fmt.Errorf("wrapped: %w", registry.ErrCommitmentTooYoung), codes.FailedPrecondition, "COMMITMENT_TOO_YOUNG"},
		{"too old", registry.ErrCommitmentTooOld, codes.FailedPrecondition, "COMMITMENT_TOO_OLD"},
		{"taken", registry.ErrNameNotAvailable, codes.AlreadyExists, "NAME_NOT_AVAILABLE"},
		{"not active", registry.ErrNameNotActive, codes.FailedPrecondition, "NAME_NOT_ACTIVE"},
		{"underpaid", registry.ErrInsufficientPayment, codes.FailedPrecondition, "INSUFFICIENT_PAYMENT"},
		{"not owner", registry.ErrNotOwner, codes.PermissionDenied, "NOT_OWNER"},
		{"not expired", registry.ErrNotExpired, codes.FailedPrecondition, "NOT_EXPIRED"},
		{"nothing", registry.ErrNothingToWithdraw, codes.NotFound, "NOTHING_TO_WITHDRAW"},
		{"bad name", registry.ErrInvalidName, codes.InvalidArgument, "INVALID_NAME"},
		{"no funds", ledger.ErrInsufficientFunds, codes.FailedPrecondition, "INSUFFICIENT_FUNDS"},
		{"ledger closed", ledger.ErrClosed, codes.Unavailable, "LEDGER_CLOSED"},
		{"deposits off", ErrDepositsDisabled, codes.FailedPrecondition, "DEPOSITS_DISABLED"},
		{"rate limited", ErrRateLimited, codes.ResourceExhausted, ReasonRateLimited},
		{"not started", ErrServerNotStarted, codes.Unavailable, ReasonUnavailable},
		{"validation", NewValidationError("name", "", "name cannot be empty"), codes.InvalidArgument, ReasonInvalidArgument},
		{"unknown", errors.New("disk on fire"), codes.Internal, ReasonInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ToGRPCError(tc.err)
			st, ok := status.FromError(err)
			testutil.RequireNotNil(t, st)
			testutil.AssertTrue(t, ok)
			testutil.AssertEqual(t, tc.wantCode, st.Code())
			testutil.AssertEqual(t, tc.wantReason, ReasonFromStatus(err))
		})
	}
}

func TestToGRPCError_Passthrough(t *testing.T) {
	testutil.AssertNil(t, ToGRPCError(nil))

	orig := status.Error(codes.Aborted, "already a status")
	testutil.AssertEqual(t, orig, ToGRPCError(orig))

	st, _ := status.FromError(ToGRPCError(context.DeadlineExceeded))
	testutil.AssertEqual(t, codes.DeadlineExceeded, st.Code())
}

func TestToGRPCError_HidesInternalDetail(t *testing.T) {
	st, _ := status.FromError(ToGRPCError(errors.New("open /secret/path: permission denied")))
	testutil.AssertEqual(t, "an unexpected internal error occurred", st.Message())
}

func TestToGRPCError_ValidationMetadata(t *testing.T) {
	err := ToGRPCError(NewValidationError("owner", "", "owner cannot be empty"))
	st, _ := status.FromError(err)
	testutil.AssertEqual(t, "owner cannot be empty", st.Message())

	var info *errdetails.ErrorInfo
	for _, d := range st.Details() {
		if i, ok := d.(*errdetails.ErrorInfo); ok {
			info = i
		}
	}
	testutil.RequireNotNil(t, info)
	testutil.AssertEqual(t, ErrorDomain, info.GetDomain())
	testutil.AssertEqual(t, "owner", info.GetMetadata()["field"])
}

func TestReasonFromStatus_ForeignError(t *testing.T) {
	testutil.AssertEqual(t, "", ReasonFromStatus(errors.New("plain")))
	testutil.AssertEqual(t, "", ReasonFromStatus(status.Error(codes.NotFound, "no details")))
}

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError("limit", 5000, "too big")
	testutil.AssertContains(t, err.Error(), "limit")
	testutil.AssertContains(t, err.Error(), "5000")
	testutil.AssertContains(t, err.Error(), "too big")
}
