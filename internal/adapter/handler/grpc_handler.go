package handler

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const HealthServiceName = "storefront.Cart"

// RegisterHealth registers the standard health service on srv and marks the
// storefront as serving.
func RegisterHealth(srv *grpc.Server) *health.Server {
	h := health.NewServer()
	healthpb.RegisterHealthServer(srv, h)
	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(HealthServiceName, healthpb.HealthCheckResponse_SERVING)
	return h
}
