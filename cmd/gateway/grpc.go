package main

import (
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type healthServer struct {
	grpc   *grpc.Server
	health *health.Server
}

// startHealthServer serves the standard gRPC health service for orchestration probes.
func startHealthServer(port string, log *zap.Logger) (*healthServer, error) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, err
	}

	s := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	reflection.Register(s)
	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		log.Info("grpc health server listening", zap.String("addr", lis.Addr().String()))
		if err := s.Serve(lis); err != nil {
			log.Error("grpc server stopped", zap.Error(err))
		}
	}()

	return &healthServer{grpc: s, health: h}, nil
}

func (h *healthServer) Stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
