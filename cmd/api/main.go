package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/safar/stockbook/internal/api"
	"github.com/safar/stockbook/internal/config"
	"github.com/safar/stockbook/internal/kvstore"
	"github.com/safar/stockbook/internal/notify"
	"github.com/safar/stockbook/internal/store"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := kvstore.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	log.Printf("Using %s backend", cfg.Store.Backend)

	recorder := notify.NewRecorder(cfg.Store.NotificationHistory)
	inv, err := store.Open(ctx, backend,
		store.WithNotifier(notify.Multi(notify.Log{}, recorder)),
		store.WithAllowNegativeStock(cfg.Store.AllowNegativeStock),
	)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: api.NewServer(inv,
			api.WithEvents(recorder),
			api.WithToken(cfg.Server.APIToken),
		).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Printf("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return inv.Flush(shutdownCtx)
	})

	return g.Wait()
}
