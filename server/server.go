package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/jathurchan/namereg/api"
	"github.com/jathurchan/namereg/clock"
	"github.com/jathurchan/namereg/logger"
)

// registryServer implements RegistryServer.
type registryServer struct {
	mu sync.Mutex // Guards lifecycle fields below.

	config    ServerConfig
	ledger    Ledger
	validator RequestValidator
	limiters  *RateLimiterPool
	conns     ConnectionManager
	logger    logger.Logger
	metrics   ServerMetrics

	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server

	started    bool
	stopped    bool
	cancelBg   context.CancelFunc
	background sync.WaitGroup
	serveErr   chan error
}

// NewRegistryServer creates a server for l. The listener is bound by Start.
func NewRegistryServer(config ServerConfig, l Ledger) (RegistryServer, error) {
	if l == nil {
		return nil, errors.New("server: ledger is required")
	}
	if config.Logger == nil {
		config.Logger = logger.NewNoOpLogger()
	}
	if config.Metrics == nil {
		config.Metrics = NewNoOpServerMetrics()
	}
	if config.Clock == nil {
		config.Clock = clock.NewStandardClock()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	log := config.Logger.WithComponent("server")
	s := &registryServer{
		config:    config,
		ledger:    l,
		validator: NewRequestValidator(log),
		conns:     NewConnectionManager(config.Metrics, log, config.Clock),
		logger:    log,
		metrics:   config.Metrics,
	}
	if config.EnableRateLimit {
		s.limiters = NewRateLimiterPool(func() RateLimiter {
			return NewTokenBucketRateLimiter(config.RateLimit, config.RateLimitBurst, config.RateLimitWindow, log)
		}, DefaultRateLimiterPoolSize)
	}
	return s, nil
}

// Start binds the listener and begins serving.
func (s *registryServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrServerStopped
	}
	if s.started {
		return ErrServerAlreadyStarted
	}

	lis, err := s.listen(ctx)
	if err != nil {
		return err
	}

	s.grpcServer = grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.unaryInterceptor),
		grpc.StatsHandler(newConnStatsHandler(s.conns)),
		grpc.MaxRecvMsgSize(s.config.MaxRequestSize),
		grpc.MaxSendMsgSize(s.config.MaxResponseSize),
		grpc.MaxConcurrentStreams(uint32(s.config.MaxConcurrentStreams)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    DefaultGRPCKeepaliveTime,
			Timeout: DefaultGRPCKeepaliveTimeout,
		}),
	)
	api.RegisterRegistryServer(s.grpcServer, s)

	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)

	s.listener = lis
	s.serveErr = make(chan error, 1)
	go func() {
		s.serveErr <- s.grpcServer.Serve(lis)
	}()

	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelBg = cancel
	if s.config.TickInterval > 0 {
		s.background.Add(1)
		go func() {
			defer s.background.Done()
			s.ledger.RunTicker(bgCtx, s.config.TickInterval)
		}()
	}

	s.started = true
	s.logger.Infow("Registry server started", "address", lis.Addr().String())
	return nil
}

func (s *registryServer) listen(ctx context.Context) (net.Listener, error) {
	if s.config.Listener != nil {
		return s.config.Listener, nil
	}
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", s.config.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("server: listen on %s: %w", s.config.ListenAddress, err)
	}
	return lis, nil
}

// Stop gracefully shuts the server down.
func (s *registryServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	grpcServer, healthServer, cancel := s.grpcServer, s.health, s.cancelBg
	s.mu.Unlock()

	s.logger.Infow("Stopping registry server")
	healthServer.Shutdown()
	cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancelTimeout()

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		grpcServer.Stop()
		<-done
		err = ErrShutdownTimeout
	}
	s.background.Wait()

	if serveErr := <-s.serveErr; serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
		s.logger.Warnw("gRPC serve loop ended with error", "error", serveErr)
	}
	s.logger.Infow("Registry server stopped")
	return err
}

// Addr returns the bound address.
func (s *registryServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Metrics returns the server metrics sink.
func (s *registryServer) Metrics() ServerMetrics {
	return s.metrics
}

func (s *registryServer) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}
