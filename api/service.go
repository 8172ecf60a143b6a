package api

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "namereg.v1.Registry"

// Method names, as they appear in the last path segment of each RPC.
const (
	MethodMakeCommitment = "MakeCommitment"
	MethodRentPrice      = "RentPrice"
	MethodGetPolicy      = "GetPolicy"
	MethodCommit         = "Commit"
	MethodRegister       = "Register"
	MethodRenew          = "Renew"
	MethodWithdrawEscrow = "WithdrawEscrow"
	MethodDeposit        = "Deposit"
	MethodGetRecord      = "GetRecord"
	MethodListRecords    = "ListRecords"
	MethodGetCommitment  = "GetCommitment"
	MethodGetBalance     = "GetBalance"
	MethodListBalances   = "ListBalances"
	MethodHealth         = "Health"
)

// FullMethod returns the RPC path for method, e.g. "/namereg.v1.Registry/Commit".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// RegistryServer is the server side of the Registry service.
type RegistryServer interface {
	MakeCommitment(context.Context, *MakeCommitmentRequest) (*MakeCommitmentResponse, error)
	RentPrice(context.Context, *RentPriceRequest) (*RentPriceResponse, error)
	GetPolicy(context.Context, *GetPolicyRequest) (*GetPolicyResponse, error)
	Commit(context.Context, *CommitRequest) (*TxResponse, error)
	Register(context.Context, *RegisterRequest) (*TxResponse, error)
	Renew(context.Context, *RenewRequest) (*TxResponse, error)
	WithdrawEscrow(context.Context, *WithdrawEscrowRequest) (*TxResponse, error)
	Deposit(context.Context, *DepositRequest) (*TxResponse, error)
	GetRecord(context.Context, *GetRecordRequest) (*GetRecordResponse, error)
	ListRecords(context.Context, *ListRecordsRequest) (*ListRecordsResponse, error)
	GetCommitment(context.Context, *GetCommitmentRequest) (*GetCommitmentResponse, error)
	GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error)
	ListBalances(context.Context, *ListBalancesRequest) (*ListBalancesResponse, error)
	Health(context.Context, *HealthRequest) (*HealthResponse, error)
}

// RegisterRegistryServer attaches srv to s.
func RegisterRegistryServer(s grpc.ServiceRegistrar, srv RegistryServer) {
	s.RegisterService(&RegistryServiceDesc, srv)
}

// unary adapts a typed handler to grpc.MethodHandler.
func unary[Req, Resp any](method string, call func(RegistryServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RegistryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RegistryServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RegistryServiceDesc describes the Registry service to grpc.Server.
var RegistryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RegistryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodMakeCommitment, Handler: unary(MethodMakeCommitment, RegistryServer.MakeCommitment)},
		{MethodName: MethodRentPrice, Handler: unary(MethodRentPrice, RegistryServer.RentPrice)},
		{MethodName: MethodGetPolicy, Handler: unary(MethodGetPolicy, RegistryServer.GetPolicy)},
		{MethodName: MethodCommit, Handler: unary(MethodCommit, RegistryServer.Commit)},
		{MethodName: MethodRegister, Handler: unary(MethodRegister, RegistryServer.Register)},
		{MethodName: MethodRenew, Handler: unary(MethodRenew, RegistryServer.Renew)},
		{MethodName: MethodWithdrawEscrow, Handler: unary(MethodWithdrawEscrow, RegistryServer.WithdrawEscrow)},
		{MethodName: MethodDeposit, Handler: unary(MethodDeposit, RegistryServer.Deposit)},
		{MethodName: MethodGetRecord, Handler: unary(MethodGetRecord, RegistryServer.GetRecord)},
		{MethodName: MethodListRecords, Handler: unary(MethodListRecords, RegistryServer.ListRecords)},
		{MethodName: MethodGetCommitment, Handler: unary(MethodGetCommitment, RegistryServer.GetCommitment)},
		{MethodName: MethodGetBalance, Handler: unary(MethodGetBalance, RegistryServer.GetBalance)},
		{MethodName: MethodListBalances, Handler: unary(MethodListBalances, RegistryServer.ListBalances)},
		{MethodName: MethodHealth, Handler: unary(MethodHealth, RegistryServer.Health)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "namereg/v1/registry",
}

// RegistryClient is the client side of the Registry service.
type RegistryClient interface {
	MakeCommitment(ctx context.Context, in *MakeCommitmentRequest, opts ...grpc.CallOption) (*MakeCommitmentResponse, error)
	RentPrice(ctx context.Context, in *RentPriceRequest, opts ...grpc.CallOption) (*RentPriceResponse, error)
	GetPolicy(ctx context.Context, in *GetPolicyRequest, opts ...grpc.CallOption) (*GetPolicyResponse, error)
	Commit(ctx context.Context, in *CommitRequest, opts ...grpc.CallOption) (*TxResponse, error)
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*TxResponse, error)
	Renew(ctx context.Context, in *RenewRequest, opts ...grpc.CallOption) (*TxResponse, error)
	WithdrawEscrow(ctx context.Context, in *WithdrawEscrowRequest, opts ...grpc.CallOption) (*TxResponse, error)
	Deposit(ctx context.Context, in *DepositRequest, opts ...grpc.CallOption) (*TxResponse, error)
	GetRecord(ctx context.Context, in *GetRecordRequest, opts ...grpc.CallOption) (*GetRecordResponse, error)
	ListRecords(ctx context.Context, in *ListRecordsRequest, opts ...grpc.CallOption) (*ListRecordsResponse, error)
	GetCommitment(ctx context.Context, in *GetCommitmentRequest, opts ...grpc.CallOption) (*GetCommitmentResponse, error)
	GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*GetBalanceResponse, error)
	ListBalances(ctx context.Context, in *ListBalancesRequest, opts ...grpc.CallOption) (*ListBalancesResponse, error)
	Health(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error)
}

type registryClient struct {
	cc grpc.ClientConnInterface
}

// NewRegistryClient returns a client that sends every call with the JSON codec.
func NewRegistryClient(cc grpc.ClientConnInterface) RegistryClient {
	return &registryClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) MakeCommitment(ctx context.Context, in *MakeCommitmentRequest, opts ...grpc.CallOption) (*MakeCommitmentResponse, error) {
	return invoke[MakeCommitmentResponse](ctx, c.cc, MethodMakeCommitment, in, opts)
}

func (c *registryClient) RentPrice(ctx context.Context, in *RentPriceRequest, opts ...grpc.CallOption) (*RentPriceResponse, error) {
	return invoke[RentPriceResponse](ctx, c.cc, MethodRentPrice, in, opts)
}

func (c *registryClient) GetPolicy(ctx context.Context, in *GetPolicyRequest, opts ...grpc.CallOption) (*GetPolicyResponse, error) {
	return invoke[GetPolicyResponse](ctx, c.cc, MethodGetPolicy, in, opts)
}

func (c *registryClient) Commit(ctx context.Context, in *CommitRequest, opts ...grpc.CallOption) (*TxResponse, error) {
	return invoke[TxResponse](ctx, c.cc, MethodCommit, in, opts)
}

func (c *registryClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*TxResponse, error) {
	return invoke[TxResponse](ctx, c.cc, MethodRegister, in, opts)
}

func (c *registryClient) Renew(ctx context.Context, in *RenewRequest, opts ...grpc.CallOption) (*TxResponse, error) {
	return invoke[TxResponse](ctx, c.cc, MethodRenew, in, opts)
}

func (c *registryClient) WithdrawEscrow(ctx context.Context, in *WithdrawEscrowRequest, opts ...grpc.CallOption) (*TxResponse, error) {
	return invoke[TxResponse](ctx, c.cc, MethodWithdrawEscrow, in, opts)
}

func (c *registryClient) Deposit(ctx context.Context, in *DepositRequest, opts ...grpc.CallOption) (*TxResponse, error) {
	return invoke[TxResponse](ctx, c.cc, MethodDeposit, in, opts)
}

func (c *registryClient) GetRecord(ctx context.Context, in *GetRecordRequest, opts ...grpc.CallOption) (*GetRecordResponse, error) {
	return invoke[GetRecordResponse](ctx, c.cc, MethodGetRecord, in, opts)
}

func (c *registryClient) ListRecords(ctx context.Context, in *ListRecordsRequest, opts ...grpc.CallOption) (*ListRecordsResponse, error) {
	return invoke[ListRecordsResponse](ctx, c.cc, MethodListRecords, in, opts)
}

func (c *registryClient) GetCommitment(ctx context.Context, in *GetCommitmentRequest, opts ...grpc.CallOption) (*GetCommitmentResponse, error) {
	return invoke[GetCommitmentResponse](ctx, c.cc, MethodGetCommitment, in, opts)
}

func (c *registryClient) GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*GetBalanceResponse, error) {
	return invoke[GetBalanceResponse](ctx, c.cc, MethodGetBalance, in, opts)
}

func (c *registryClient) ListBalances(ctx context.Context, in *ListBalancesRequest, opts ...grpc.CallOption) (*ListBalancesResponse, error) {
	return invoke[ListBalancesResponse](ctx, c.cc, MethodListBalances, in, opts)
}

func (c *registryClient) Health(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error) {
	return invoke[HealthResponse](ctx, c.cc, MethodHealth, in, opts)
}
