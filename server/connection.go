package server

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc/stats"

	"github.com/jathurchan/namereg/clock"
	"github.com/jathurchan/namereg/logger"
)

// ConnectionInfo holds metadata about a gRPC client connection.
type ConnectionInfo struct {
	RemoteAddr   string    // Client's remote address
	ConnectedAt  time.Time // Time the connection was established
	LastActive   time.Time // Last time a request was received
	RequestCount int64     // Total number of requests from this connection
}

// ConnectionManager tracks gRPC client connections and their activity.
type ConnectionManager interface {
	// Registers a new connection
	OnConnect(remoteAddr string)

	// Removes an existing connection
	OnDisconnect(remoteAddr string)

	// Updates activity for a connection
	OnRequest(remoteAddr string)

	// Returns the number of active connections
	GetActiveConnections() int

	// Returns a snapshot of all connections
	GetAllConnectionInfo() map[string]ConnectionInfo
}

// connectionManager is the default implementation of ConnectionManager.
type connectionManager struct {
	mu sync.RWMutex

	// Active connections keyed by remote address
	connections map[string]*ConnectionInfo

	metrics ServerMetrics
	logger  logger.Logger
	clock   clock.Clock
}

// NewConnectionManager returns a new ConnectionManager.
// Falls back to the standard clock if none is given.
func NewConnectionManager(metrics ServerMetrics, logger logger.Logger, clk clock.Clock) ConnectionManager {
	if clk == nil {
		clk = clock.NewStandardClock()
	}
	if metrics == nil {
		metrics = NewNoOpServerMetrics()
	}
	return &connectionManager{
		connections: make(map[string]*ConnectionInfo),
		metrics:     metrics,
		logger:      logger.WithComponent("connection-manager"),
		clock:       clk,
	}
}

// OnConnect registers a new client connection.
func (cm *connectionManager) OnConnect(remoteAddr string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.connections[remoteAddr]; exists {
		cm.logger.Warnw("Connection already exists", "remoteAddr", remoteAddr)
		return
	}

	now := cm.clock.Now()
	cm.connections[remoteAddr] = &ConnectionInfo{
		RemoteAddr:  remoteAddr,
		ConnectedAt: now,
		LastActive:  now,
	}
	total := len(cm.connections)
	cm.metrics.SetActiveConnections(total)
	cm.logger.Debugw("New client connection", "remoteAddr", remoteAddr, "totalConnections", total)
}

// OnDisconnect unregisters a client connection.
func (cm *connectionManager) OnDisconnect(remoteAddr string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.connections[remoteAddr]; !exists {
		return
	}
	delete(cm.connections, remoteAddr)
	cm.metrics.SetActiveConnections(len(cm.connections))
	cm.logger.Debugw("Client connection closed", "remoteAddr", remoteAddr, "totalConnections", len(cm.connections))
}

// OnRequest updates the last activity and request count for a connection.
func (cm *connectionManager) OnRequest(remoteAddr string) {
	now := cm.clock.Now()

	cm.mu.Lock()
	defer cm.mu.Unlock()

	conn, exists := cm.connections[remoteAddr]
	if !exists {
		cm.logger.Debugw("Received request for unknown connection", "remoteAddr", remoteAddr)
		return
	}
	conn.LastActive = now
	conn.RequestCount++
}

// GetActiveConnections returns the current number of active connections.
func (cm *connectionManager) GetActiveConnections() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// GetAllConnectionInfo returns a copy of all current connection info.
func (cm *connectionManager) GetAllConnectionInfo() map[string]ConnectionInfo {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	infos := make(map[string]ConnectionInfo, len(cm.connections))
	for addr, info := range cm.connections {
		infos[addr] = *info
	}
	return infos
}

type remoteAddrKey struct{}

// connStatsHandler feeds gRPC connection and RPC events into a ConnectionManager.
type connStatsHandler struct {
	manager ConnectionManager
}

func newConnStatsHandler(manager ConnectionManager) stats.Handler {
	return &connStatsHandler{manager: manager}
}

func (h *connStatsHandler) TagConn(ctx context.Context, info *stats.ConnTagInfo) context.Context {
	addr := "unknown"
	if info != nil && info.RemoteAddr != nil {
		addr = info.RemoteAddr.String()
	}
	return context.WithValue(ctx, remoteAddrKey{}, addr)
}

func (h *connStatsHandler) HandleConn(ctx context.Context, s stats.ConnStats) {
	addr, _ := ctx.Value(remoteAddrKey{}).(string)
	switch s.(type) {
	case *stats.ConnBegin:
		h.manager.OnConnect(addr)
	case *stats.ConnEnd:
		h.manager.OnDisconnect(addr)
	}
}

func (h *connStatsHandler) TagRPC(ctx context.Context, _ *stats.RPCTagInfo) context.Context {
	return ctx
}

func (h *connStatsHandler) HandleRPC(ctx context.Context, s stats.RPCStats) {
	if _, ok := s.(*stats.Begin); !ok {
		return
	}
	if addr, ok := ctx.Value(remoteAddrKey{}).(string); ok {
		h.manager.OnRequest(addr)
	}
}
