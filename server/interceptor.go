package server

import (
	"context"
	"errors"
	"path"

	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"

	"github.com/jathurchan/namereg/api"
)

// unaryInterceptor applies rate limiting, the request timeout, metrics and
// error translation to every Registry RPC.
func (s *registryServer) unaryInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	method := path.Base(info.FullMethod)
	start := s.config.Clock.Now()

	s.metrics.IncrConcurrentRequests(method, 1)
	defer s.metrics.IncrConcurrentRequests(method, -1)

	resp, err := s.handle(ctx, method, req, handler)

	reason := ReasonOf(err)
	s.metrics.IncrGRPCRequest(method, err == nil, reason)
	s.metrics.ObserveRequestLatency(method, s.config.Clock.Since(start))

	var validationErr *ValidationError
	switch {
	case err == nil:
	case errors.As(err, &validationErr):
		s.metrics.IncrValidationError(method, validationErr.Field)
		s.logger.Debugw("Request validation failed", "method", method, "field", validationErr.Field, "error", err)
	case reason == ReasonInternal:
		s.logger.Errorw("Request failed", "method", method, "error", err)
	default:
		s.logger.Debugw("Request rejected", "method", method, "reason", reason, "error", err)
	}
	return resp, ToGRPCError(err)
}

func (s *registryServer) handle(ctx context.Context, method string, req any, handler grpc.UnaryHandler) (any, error) {
	if !s.running() {
		return nil, ErrServerNotStarted
	}
	if s.limiters != nil && !s.limiters.Get(rateLimitKey(ctx, req)).Allow() {
		s.metrics.IncrRateLimited(method)
		return nil, ErrRateLimited
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()
	return handler(ctx, req)
}

// rateLimitKey buckets requests by the acting account when the request
// names one, and by peer address otherwise.
func rateLimitKey(ctx context.Context, req any) string {
	var account string
	switch r := req.(type) {
	case *api.CommitRequest:
		account = string(r.Caller)
	case *api.RegisterRequest:
		account = string(r.Caller)
	case *api.RenewRequest:
		account = string(r.Caller)
	case *api.WithdrawEscrowRequest:
		account = string(r.Caller)
	case *api.DepositRequest:
		account = string(r.Account)
	}
	if account != "" {
		return "account:" + account
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return "peer:" + p.Addr.String()
	}
	return "peer:unknown"
}
