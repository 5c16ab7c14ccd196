package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceName is the service name reported by the health endpoint.
const HealthServiceName = "gunevo"

// Health serves the standard gRPC health protocol. The status of HealthServiceName
// follows probe, which is re-run every interval on its own goroutine.
type Health struct {
	addr     string
	probe    func(ctx context.Context) error
	interval time.Duration
	logger   *zap.Logger

	srv  *grpc.Server
	hs   *health.Server
	stop chan struct{}
	once sync.Once

	mu    sync.Mutex
	bound net.Addr
	ready chan struct{}
}

// NewHealth builds a health server listening on addr.
//
// Precondition: probe and logger must be non-nil; interval > 0.
func NewHealth(addr string, interval time.Duration, probe func(ctx context.Context) error, logger *zap.Logger) *Health {
	hs := health.NewServer()
	srv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(srv, hs)
	return &Health{
		addr:     addr,
		probe:    probe,
		interval: interval,
		logger:   logger,
		srv:      srv,
		hs:       hs,
		stop:     make(chan struct{}),
		ready:    make(chan struct{}),
	}
}

// Addr blocks until the listener is bound and returns its address.
func (h *Health) Addr() net.Addr {
	<-h.ready
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bound
}

// Start binds the listener and serves until Stop.
func (h *Health) Start() error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		close(h.ready)
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}
	h.mu.Lock()
	h.bound = lis.Addr()
	h.mu.Unlock()

	h.check()
	close(h.ready)
	go h.loop()

	h.logger.Info("health service listening", zap.String("addr", lis.Addr().String()))
	return h.srv.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs.
func (h *Health) Stop() {
	h.once.Do(func() { close(h.stop) })
	h.hs.Shutdown()
	h.srv.GracefulStop()
}

func (h *Health) loop() {
	t := time.NewTicker(h.interval)
	defer t.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-t.C:
			h.check()
		}
	}
}

func (h *Health) check() {
	ctx, cancel := context.WithTimeout(context.Background(), h.interval)
	defer cancel()
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.probe(ctx); err != nil {
		h.logger.Warn("health probe failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.hs.SetServingStatus(HealthServiceName, status)
}
