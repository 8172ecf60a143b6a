package client

import (
	"context"

	"github.com/jathurchan/namereg/api"
	"github.com/jathurchan/namereg/types"
)

// registryClient implements RegistryClient on top of baseClient.
type registryClient struct {
	base *baseClient
}

// NewRegistryClient creates a RegistryClient with the given configuration.
func NewRegistryClient(config Config) (RegistryClient, error) {
	base, err := newBaseClient(config)
	if err != nil {
		return nil, err
	}
	return &registryClient{base: base}, nil
}

func (c *registryClient) MakeCommitment(ctx context.Context, name string, owner types.Address, salt types.Salt) (types.Fingerprint, error) {
	var resp *api.MakeCommitmentResponse
	err := c.base.execute(ctx, api.MethodMakeCommitment, readCall, func(ctx context.Context, rc api.RegistryClient) error {
		var err error
		resp, err = rc.MakeCommitment(ctx, &api.MakeCommitmentRequest{Name: name, Owner: owner, Salt: salt})
		return err
	})
	if err != nil {
		return types.Fingerprint{}, err
	}
	return resp.Fingerprint, nil
}

func (c *registryClient) RentPrice(ctx context.Context, name string) (*api.RentPriceResponse, error) {
	var resp *api.RentPriceResponse
	err := c.base.execute(ctx, api.MethodRentPrice, readCall, func(ctx context.Context, rc api.RegistryClient) error {
		var err error
		resp, err = rc.RentPrice(ctx, &api.RentPriceRequest{Name: name})
		return err
	})
	return resp, err
}

func (c *registryClient) Policy(ctx context.Context) (*api.GetPolicyResponse, error) {
	var resp *api.GetPolicyResponse
	err := c.base.execute(ctx, api.MethodGetPolicy, readCall, func(ctx context.Context, rc api.RegistryClient) error {
		var err error
		resp, err = rc.GetPolicy(ctx, &api.GetPolicyRequest{})
		return err
	})
	return resp, err
}

func (c *registryClient) Commit(ctx context.Context, caller types.Address, fingerprint types.Fingerprint) (*api.TxResponse, error) {
	return c.submit(ctx, api.MethodCommit, func(ctx context.Context, rc api.RegistryClient) (*api.TxResponse, error) {
		return rc.Commit(ctx, &api.CommitRequest{Caller: caller, Fingerprint: fingerprint})
	})
}

func (c *registryClient) Register(ctx context.Context, req *api.RegisterRequest) (*api.TxResponse, error) {
	return c.submit(ctx, api.MethodRegister, func(ctx context.Context, rc api.RegistryClient) (*api.TxResponse, error) {
		return rc.Register(ctx, req)
	})
}

func (c *registryClient) Renew(ctx context.Context, caller types.Address, name string, value types.Amount) (*api.TxResponse, error) {
	return c.submit(ctx, api.MethodRenew, func(ctx context.Context, rc api.RegistryClient) (*api.TxResponse, error) {
		return rc.Renew(ctx, &api.RenewRequest{Caller: caller, Name: name, Value: value})
	})
}

func (c *registryClient) WithdrawEscrow(ctx context.Context, caller types.Address, name string) (*api.TxResponse, error) {
	return c.submit(ctx, api.MethodWithdrawEscrow, func(ctx context.Context, rc api.RegistryClient) (*api.TxResponse, error) {
		return rc.WithdrawEscrow(ctx, &api.WithdrawEscrowRequest{Caller: caller, Name: name})
	})
}

func (c *registryClient) Deposit(ctx context.Context, account types.Address, amount types.Amount) (*api.TxResponse, error) {
	return c.submit(ctx, api.MethodDeposit, func(ctx context.Context, rc api.RegistryClient) (*api.TxResponse, error) {
		return rc.Deposit(ctx, &api.DepositRequest{Account: account, Amount: amount})
	})
}

func (c *registryClient) GetRecord(ctx context.Context, name string) (*api.GetRecordResponse, error) {
	var resp *api.GetRecordResponse
	err := c.base.execute(ctx, api.MethodGetRecord, readCall, func(ctx context.Context, rc api.RegistryClient) error {
		var err error
		resp, err = rc.GetRecord(ctx, &api.GetRecordRequest{Name: name})
		return err
	})
	return resp, err
}

func (c *registryClient) ListRecords(ctx context.Context, req *api.ListRecordsRequest) (*api.ListRecordsResponse, error) {
	if req == nil {
		req = &api.ListRecordsRequest{}
	}
	var resp *api.ListRecordsResponse
	err := c.base.execute(ctx, api.MethodListRecords, readCall, func(ctx context.Context, rc api.RegistryClient) error {
		var err error
		resp, err = rc.ListRecords(ctx, req)
		return err
	})
	return resp, err
}

func (c *registryClient) GetCommitment(ctx context.Context, fingerprint types.Fingerprint) (*types.CommitmentInfo, error) {
	var resp *api.GetCommitmentResponse
	err := c.base.execute(ctx, api.MethodGetCommitment, readCall, func(ctx context.Context, rc api.RegistryClient) error {
		var err error
		resp, err = rc.GetCommitment(ctx, &api.GetCommitmentRequest{Fingerprint: fingerprint})
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp.Commitment, nil
}

func (c *registryClient) Balance(ctx context.Context, account types.Address) (types.Amount, error) {
	var resp *api.GetBalanceResponse
	err := c.base.execute(ctx, api.MethodGetBalance, readCall, func(ctx context.Context, rc api.RegistryClient) error {
		var err error
		resp, err = rc.GetBalance(ctx, &api.GetBalanceRequest{Account: account})
		return err
	})
	if err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

func (c *registryClient) Balances(ctx context.Context) (*api.ListBalancesResponse, error) {
	var resp *api.ListBalancesResponse
	err := c.base.execute(ctx, api.MethodListBalances, readCall, func(ctx context.Context, rc api.RegistryClient) error {
		var err error
		resp, err = rc.ListBalances(ctx, &api.ListBalancesRequest{})
		return err
	})
	return resp, err
}

func (c *registryClient) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp *api.HealthResponse
	err := c.base.execute(ctx, api.MethodHealth, readCall, func(ctx context.Context, rc api.RegistryClient) error {
		var err error
		resp, err = rc.Health(ctx, &api.HealthRequest{})
		return err
	})
	return resp, err
}

func (c *registryClient) Metrics() ClientMetrics {
	return c.base.metrics
}

func (c *registryClient) Close() error {
	return c.base.close()
}

// submit runs a state-changing call with transaction retry semantics.
func (c *registryClient) submit(ctx context.Context, method string, call func(context.Context, api.RegistryClient) (*api.TxResponse, error)) (*api.TxResponse, error) {
	var resp *api.TxResponse
	err := c.base.execute(ctx, method, txCall, func(ctx context.Context, rc api.RegistryClient) error {
		var err error
		resp, err = call(ctx, rc)
		return err
	})
	return resp, err
}
