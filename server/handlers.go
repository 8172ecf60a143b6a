package server

import (
	"context"
	"fmt"

	"github.com/jathurchan/namereg/api"
	"github.com/jathurchan/namereg/ledger"
	"github.com/jathurchan/namereg/registry"
	"github.com/jathurchan/namereg/types"
)

// MakeCommitment computes the fingerprint a caller should commit.
// It touches no state and is not journaled.
func (s *registryServer) MakeCommitment(ctx context.Context, req *api.MakeCommitmentRequest) (*api.MakeCommitmentResponse, error) {
	if err := s.validator.ValidateMakeCommitmentRequest(req); err != nil {
		return nil, err
	}
	name, err := registry.CanonicalName(req.Name)
	if err != nil {
		return nil, err
	}
	fp, err := s.ledger.Registry().MakeCommitment(req.Name, req.Owner, req.Salt)
	if err != nil {
		return nil, err
	}
	return &api.MakeCommitmentResponse{Name: name, Fingerprint: fp}, nil
}

// RentPrice quotes the price of registering or renewing a name.
func (s *registryServer) RentPrice(ctx context.Context, req *api.RentPriceRequest) (*api.RentPriceResponse, error) {
	if err := s.validator.ValidateRentPriceRequest(req); err != nil {
		return nil, err
	}
	name, err := registry.CanonicalName(req.Name)
	if err != nil {
		return nil, err
	}
	reg := s.ledger.Registry()
	price, err := reg.RentPrice(req.Name)
	if err != nil {
		return nil, err
	}
	lock := reg.Policy().LockAmount
	fee, err := price.Sub(lock)
	if err != nil {
		return nil, fmt.Errorf("server: price %d below lock amount %d: %w", price, lock, err)
	}
	return &api.RentPriceResponse{Name: name, Price: price, Fee: fee, LockAmount: lock}, nil
}

// GetPolicy returns the deployment constants.
func (s *registryServer) GetPolicy(ctx context.Context, _ *api.GetPolicyRequest) (*api.GetPolicyResponse, error) {
	p := s.ledger.Registry().Policy()
	return &api.GetPolicyResponse{
		LockAmount:       p.LockAmount,
		LockPeriod:       p.LockPeriod,
		MinCommitmentAge: p.MinCommitmentAge,
		MaxCommitmentAge: p.MaxCommitmentAge,
	}, nil
}

func (s *registryServer) Commit(ctx context.Context, req *api.CommitRequest) (*api.TxResponse, error) {
	if err := s.validator.ValidateCommitRequest(req); err != nil {
		return nil, err
	}
	return s.submit(ctx, req.Caller, req.Value, types.Command{
		Op:          types.OperationCommit,
		Fingerprint: req.Fingerprint,
	})
}

func (s *registryServer) Register(ctx context.Context, req *api.RegisterRequest) (*api.TxResponse, error) {
	if err := s.validator.ValidateRegisterRequest(req); err != nil {
		return nil, err
	}
	return s.submit(ctx, req.Caller, req.Value, types.Command{
		Op:    types.OperationRegister,
		Name:  req.Name,
		Owner: req.Owner,
		Salt:  req.Salt,
	})
}

func (s *registryServer) Renew(ctx context.Context, req *api.RenewRequest) (*api.TxResponse, error) {
	if err := s.validator.ValidateRenewRequest(req); err != nil {
		return nil, err
	}
	return s.submit(ctx, req.Caller, req.Value, types.Command{
		Op:   types.OperationRenew,
		Name: req.Name,
	})
}

func (s *registryServer) WithdrawEscrow(ctx context.Context, req *api.WithdrawEscrowRequest) (*api.TxResponse, error) {
	if err := s.validator.ValidateWithdrawEscrowRequest(req); err != nil {
		return nil, err
	}
	return s.submit(ctx, req.Caller, req.Value, types.Command{
		Op:   types.OperationWithdraw,
		Name: req.Name,
	})
}

// Deposit mints funds into an account. Only served when AllowDeposits is set.
func (s *registryServer) Deposit(ctx context.Context, req *api.DepositRequest) (*api.TxResponse, error) {
	if !s.config.AllowDeposits {
		return nil, ErrDepositsDisabled
	}
	if err := s.validator.ValidateDepositRequest(req); err != nil {
		return nil, err
	}
	res, err := s.ledger.Deposit(ctx, req.Account, req.Amount)
	if err != nil {
		return nil, err
	}
	return txResponse(res), nil
}

func (s *registryServer) submit(ctx context.Context, caller types.Address, value types.Amount, cmd types.Command) (*api.TxResponse, error) {
	res, err := s.ledger.Submit(ctx, ledger.Transaction{Caller: caller, Value: value, Command: cmd})
	if err != nil {
		return nil, err
	}
	return txResponse(res), nil
}

func txResponse(res *ledger.Result) *api.TxResponse {
	return &api.TxResponse{
		Index:     res.Index,
		TxID:      res.ID,
		Timestamp: res.Timestamp,
		Receipt:   res.Receipt,
	}
}

func (s *registryServer) GetRecord(ctx context.Context, req *api.GetRecordRequest) (*api.GetRecordResponse, error) {
	if err := s.validator.ValidateGetRecordRequest(req); err != nil {
		return nil, err
	}
	now := s.ledger.Now()
	rec, err := s.ledger.Record(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	return &api.GetRecordResponse{Record: rec, AsOf: now}, nil
}

func (s *registryServer) ListRecords(ctx context.Context, req *api.ListRecordsRequest) (*api.ListRecordsResponse, error) {
	if err := s.validator.ValidateListRecordsRequest(req); err != nil {
		return nil, err
	}

	var filters []registry.RecordFilter
	if req.Owner != "" {
		filters = append(filters, registry.FilterByOwner(req.Owner))
	}
	switch req.State {
	case StateFilterActive:
		filters = append(filters, registry.FilterActive)
	case StateFilterExpired:
		filters = append(filters, registry.FilterExpired)
	case StateFilterWithdrawable:
		filters = append(filters, registry.FilterWithdrawable)
	}
	limit := req.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}

	now := s.ledger.Now()
	records, total, err := s.ledger.Records(ctx, registry.And(filters...), limit, req.Offset)
	if err != nil {
		return nil, err
	}
	return &api.ListRecordsResponse{Records: records, Total: total, AsOf: now}, nil
}

func (s *registryServer) GetCommitment(ctx context.Context, req *api.GetCommitmentRequest) (*api.GetCommitmentResponse, error) {
	if err := s.validator.ValidateGetCommitmentRequest(req); err != nil {
		return nil, err
	}
	c, err := s.ledger.Commitment(ctx, req.Fingerprint)
	if err != nil {
		return nil, err
	}
	return &api.GetCommitmentResponse{Commitment: c}, nil
}

func (s *registryServer) GetBalance(ctx context.Context, req *api.GetBalanceRequest) (*api.GetBalanceResponse, error) {
	if err := s.validator.ValidateGetBalanceRequest(req); err != nil {
		return nil, err
	}
	return &api.GetBalanceResponse{Account: req.Account, Balance: s.ledger.Balance(req.Account)}, nil
}

// ListBalances reports every funded account, the registry's own included.
func (s *registryServer) ListBalances(ctx context.Context, _ *api.ListBalancesRequest) (*api.ListBalancesResponse, error) {
	return &api.ListBalancesResponse{Balances: s.ledger.Balances(), LastIndex: s.ledger.LastIndex()}, nil
}

// Health reports the ledger position and whether the books balance.
func (s *registryServer) Health(ctx context.Context, _ *api.HealthRequest) (*api.HealthResponse, error) {
	resp := &api.HealthResponse{
		Healthy:   true,
		LastIndex: s.ledger.LastIndex(),
		Now:       s.ledger.Now(),
	}
	if err := s.ledger.Audit(); err != nil {
		resp.Healthy = false
		resp.Message = err.Error()
		s.logger.Errorw("Health check failed", "error", err)
	}
	s.metrics.IncrHealthCheck(resp.Healthy)
	return resp, nil
}
