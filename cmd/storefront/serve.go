package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/norun9/bakery-storefront/cartstore"
	"github.com/norun9/bakery-storefront/catalog"
	"github.com/norun9/bakery-storefront/services"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the storefront HTTP API and the gRPC health service",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		log.Infof("exporting traces to %s", cfg.Tracing.Endpoint)
		tp, err := initTracerProvider(ctx, cfg.Tracing.Endpoint)
		if err != nil {
			return err
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Printf("Error shutting down tracer provider: %v", err)
			}
		}()
	}

	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	log.Infof("catalog loaded with %d products", len(cat.Products()))

	storage, err := cartstore.Open(ctx, cfg.StorageOptions(), log)
	if err != nil {
		return err
	}
	defer storage.Close()
	log.WithField("backend", cfg.Storage.Backend).Info("cart storage ready")

	sessions := services.NewSessions(ctx, storage, log)
	defer sessions.Close()

	srv := services.NewServer(services.Options{
		Catalog:  cat,
		Sessions: sessions,
		Storage:  storage,
		TaxRate:  cfg.TaxRate,
		Log:      log,
		Done:     ctx.Done(),
	})
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	grpcServer := services.NewGRPCServer(storage, log)

	lis, err := net.Listen("tcp", ":"+cfg.HealthPort)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.HealthPort, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("starting HTTP server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Infof("starting gRPC health server on :%s", cfg.HealthPort)
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})
	return g.Wait()
}
