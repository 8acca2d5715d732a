package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/norun9/bakery-storefront/cartstore"
)

// HealthCheckService reports SERVING while the cart storage answers a ping.
type HealthCheckService struct {
	storage cartstore.Storage
	log     logrus.FieldLogger
	healthpb.UnimplementedHealthServer
}

func NewHealthCheckService(storage cartstore.Storage, log logrus.FieldLogger) *HealthCheckService {
	return &HealthCheckService{storage: storage, log: log}
}

// Check answers for the whole server ("") and for ServiceName.
func (h *HealthCheckService) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != ServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}
	if h.storage.Ping(ctx) {
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
	}
	h.log.Warn("health check: storage not reachable")
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
}

// NewGRPCServer builds the health server with OpenTelemetry instrumentation and
// reflection.
func NewGRPCServer(storage cartstore.Storage, log logrus.FieldLogger) *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)
	healthpb.RegisterHealthServer(srv, NewHealthCheckService(storage, log))
	reflection.Register(srv)
	return srv
}
