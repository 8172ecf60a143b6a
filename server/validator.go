package server

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jathurchan/namereg/api"
	"github.com/jathurchan/namereg/logger"
	"github.com/jathurchan/namereg/types"
)

// RequestValidator defines the interface for validating incoming gRPC requests
// to the registry server. Each method returns a *ValidationError if the
// request is malformed. Domain rules such as name syntax are left to the
// registry so that their errors keep their stable reasons.
type RequestValidator interface {
	ValidateMakeCommitmentRequest(req *api.MakeCommitmentRequest) error
	ValidateRentPriceRequest(req *api.RentPriceRequest) error
	ValidateCommitRequest(req *api.CommitRequest) error
	ValidateRegisterRequest(req *api.RegisterRequest) error
	ValidateRenewRequest(req *api.RenewRequest) error
	ValidateWithdrawEscrowRequest(req *api.WithdrawEscrowRequest) error
	ValidateDepositRequest(req *api.DepositRequest) error
	ValidateGetRecordRequest(req *api.GetRecordRequest) error
	ValidateListRecordsRequest(req *api.ListRecordsRequest) error
	ValidateGetCommitmentRequest(req *api.GetCommitmentRequest) error
	ValidateGetBalanceRequest(req *api.GetBalanceRequest) error
}

// requestValidator implements the RequestValidator interface.
type requestValidator struct {
	logger logger.Logger
}

// NewRequestValidator creates a new default request validator.
func NewRequestValidator(logger logger.Logger) RequestValidator {
	return &requestValidator{
		logger: logger,
	}
}

func (v *requestValidator) ValidateMakeCommitmentRequest(req *api.MakeCommitmentRequest) error {
	if err := v.validateName(req.Name); err != nil {
		return err
	}
	return v.validateAddress("owner", req.Owner)
}

func (v *requestValidator) ValidateRentPriceRequest(req *api.RentPriceRequest) error {
	return v.validateName(req.Name)
}

func (v *requestValidator) ValidateCommitRequest(req *api.CommitRequest) error {
	if err := v.validateAddress("caller", req.Caller); err != nil {
		return err
	}
	if req.Fingerprint.IsZero() {
		return NewValidationError("fingerprint", req.Fingerprint, "fingerprint is required")
	}
	return nil
}

func (v *requestValidator) ValidateRegisterRequest(req *api.RegisterRequest) error {
	if err := v.validateAddress("caller", req.Caller); err != nil {
		return err
	}
	if err := v.validateName(req.Name); err != nil {
		return err
	}
	if err := v.validateAddress("owner", req.Owner); err != nil {
		return err
	}
	return nil
}

func (v *requestValidator) ValidateRenewRequest(req *api.RenewRequest) error {
	if err := v.validateAddress("caller", req.Caller); err != nil {
		return err
	}
	if err := v.validateName(req.Name); err != nil {
		return err
	}
	return nil
}

func (v *requestValidator) ValidateWithdrawEscrowRequest(req *api.WithdrawEscrowRequest) error {
	if err := v.validateAddress("caller", req.Caller); err != nil {
		return err
	}
	return v.validateName(req.Name)
}

func (v *requestValidator) ValidateDepositRequest(req *api.DepositRequest) error {
	if err := v.validateAddress("account", req.Account); err != nil {
		return err
	}
	if req.Amount == 0 {
		return NewValidationError("amount", req.Amount, "amount must be positive")
	}
	return nil
}

func (v *requestValidator) ValidateGetRecordRequest(req *api.GetRecordRequest) error {
	return v.validateName(req.Name)
}

func (v *requestValidator) ValidateListRecordsRequest(req *api.ListRecordsRequest) error {
	if req.Owner != "" {
		if err := v.validateAddress("owner", req.Owner); err != nil {
			return err
		}
	}
	switch req.State {
	case "", StateFilterActive, StateFilterExpired, StateFilterWithdrawable:
	default:
		return NewValidationError("state", req.State,
			fmt.Sprintf("state must be empty, %q, %q or %q", StateFilterActive, StateFilterExpired, StateFilterWithdrawable))
	}
	if req.Limit < 0 || req.Limit > MaxListLimit {
		return NewValidationError("limit", req.Limit, fmt.Sprintf("limit must be between 0 and %d", MaxListLimit))
	}
	if req.Offset < 0 {
		return NewValidationError("offset", req.Offset, "offset cannot be negative")
	}
	return nil
}

func (v *requestValidator) ValidateGetCommitmentRequest(req *api.GetCommitmentRequest) error {
	if req.Fingerprint.IsZero() {
		return NewValidationError("fingerprint", req.Fingerprint, "fingerprint is required")
	}
	return nil
}

func (v *requestValidator) ValidateGetBalanceRequest(req *api.GetBalanceRequest) error {
	return v.validateAddress("account", req.Account)
}

// validateName checks transport limits only; syntax is the registry's concern.
func (v *requestValidator) validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError("name", name, "name cannot be empty")
	}
	if len(name) > MaxNameInputLength {
		return NewValidationError("name", len(name),
			fmt.Sprintf("name exceeds maximum length of %d bytes", MaxNameInputLength))
	}
	if !utf8.ValidString(name) {
		return NewValidationError("name", name, "name must be valid UTF-8")
	}
	return nil
}

func (v *requestValidator) validateAddress(field string, addr types.Address) error {
	if addr == "" {
		return NewValidationError(field, addr, field+" cannot be empty")
	}
	if len(addr) > MaxAddressLength {
		return NewValidationError(field, len(addr),
			fmt.Sprintf("%s exceeds maximum length of %d bytes", field, MaxAddressLength))
	}
	if strings.ContainsFunc(string(addr), func(r rune) bool { return r <= ' ' || r == 0x7f }) {
		return NewValidationError(field, addr, field+" cannot contain whitespace or control characters")
	}
	return nil
}
