package grpcserver

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"groceryFulfillment/internal/auth"
	"groceryFulfillment/internal/config"
	"groceryFulfillment/internal/fulfillment"
	"groceryFulfillment/internal/logger"
	"groceryFulfillment/internal/storefront"
	"groceryFulfillment/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Full method names callable without a token.
var publicMethods = []string{
	"/" + storefrontServiceName + "/ListCatalog",
}

// Services bundles what the gRPC services need.
type Services struct {
	Users    *repository.UserRepository
	Orders   *repository.OrderRepository
	Board    *fulfillment.Board
	Catalog  *storefront.Catalog
	Checkout *storefront.Checkout
	Log      *slog.Logger
}

// NewServer builds the gRPC server with auth and logging interceptors and
// registers AdminService and StorefrontService.
func NewServer(secret string, svc Services) *grpc.Server {
	log := logger.Component(svc.Log, "grpc")
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			loggingInterceptor(log),
			auth.NewUnaryAuthInterceptor(secret, publicMethods...),
		),
		grpc.ChainStreamInterceptor(auth.NewStreamAuthInterceptor(secret, publicMethods...)),
	)
	srv.RegisterService(&adminServiceDesc, &AdminServer{Users: svc.Users, Board: svc.Board, Catalog: svc.Catalog, Log: log})
	srv.RegisterService(&storefrontServiceDesc, &StorefrontServer{Catalog: svc.Catalog, Checkout: svc.Checkout, Orders: svc.Orders, Profiles: svc.Users})
	return srv
}

// StartGRPC starts the gRPC server on the configured address and returns a shutdown function.
func StartGRPC(cfg *config.Config, svc Services) (func(context.Context) error, error) {
	if cfg == nil {
		panic("config is required")
	}

	addr := cfg.GRPC.Address
	if addr == "" {
		addr = ":50051"
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	// Plaintext; terminate TLS in front of the service.
	srv := NewServer(cfg.Auth.JWTSecret, svc)
	go func() { _ = srv.Serve(lis) }()

	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}, nil
}

func loggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}
		log.Log(ctx, level, "rpc", "method", info.FullMethod, "code", status.Code(err).String(), "took", time.Since(start))
		return resp, err
	}
}
