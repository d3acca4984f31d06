package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"groceryFulfillment/internal/db"
	"groceryFulfillment/internal/fulfillment"
	grpcserver "groceryFulfillment/internal/grpc"
	"groceryFulfillment/internal/httpapi"
	"groceryFulfillment/internal/live"
	"groceryFulfillment/internal/logger"
	"groceryFulfillment/internal/metrics"
	"groceryFulfillment/internal/storefront"
	"groceryFulfillment/models"
	"groceryFulfillment/repository"
)

// grocery serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC services, the live order board and the ops endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.App.Env)
	log.Info("configuration loaded", "config", cfg.String())

	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Warn("close db", "error", err)
		}
	}()

	m := metrics.New()
	hub := live.NewHub(log)
	users := repository.NewUserRepository(d, hub)
	orders := repository.NewOrderRepository(d, hub)
	catalog := repository.NewCatalogRepository(d, hub)

	orderFeed := live.NewCollection[models.Order](repository.CollectionOrders, orders.List, log)
	productFeed := live.NewCollection[models.Product](repository.CollectionProducts, catalog.ListProducts, log)
	userFeed := live.NewCollection[models.User](repository.CollectionUsers, users.All, log)
	hub.Register(orderFeed)
	hub.Register(productFeed)
	hub.Register(userFeed)

	agg := fulfillment.NewAggregator(users, fulfillment.AggregatorConfig{
		Timeout:     cfg.Aggregation.Timeout,
		Concurrency: cfg.Aggregation.Concurrency,
		NewestFirst: cfg.Aggregation.NewestFirst,
	}, log, m)
	desk := fulfillment.NewDesk(orders, cfg.Orders.StrictTransitions, log, m)
	board := fulfillment.NewBoard(agg, desk, log, m)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error {
		return board.Run(gctx, orderFeed.Subscribe(gctx), productFeed.Subscribe(gctx), userFeed.Subscribe(gctx))
	})

	stopGRPC, err := grpcserver.StartGRPC(cfg, grpcserver.Services{
		Users:    users,
		Orders:   orders,
		Board:    board,
		Catalog:  storefront.NewCatalog(catalog, log),
		Checkout: storefront.NewCheckout(orders, log, m),
		Log:      log,
	})
	if err != nil {
		stop()
		_ = g.Wait()
		return err
	}
	log.Info("gRPC server listening", "addr", cfg.GRPC.Address)

	stopHTTP := httpapi.Start(cfg.HTTP.Address, httpapi.NewRouter(httpapi.Deps{
		DB:      d,
		Metrics: m,
		Board:   board,
		Log:     log,
	}), log)
	if cfg.HTTP.Address != "" {
		log.Info("ops endpoint listening", "addr", cfg.HTTP.Address)
	}

	<-gctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stopGRPC(shutdownCtx); err != nil {
		log.Warn("grpc shutdown", "error", err)
	}
	if err := stopHTTP(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	stop()
	orderFeed.Close()
	productFeed.Close()
	userFeed.Close()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
