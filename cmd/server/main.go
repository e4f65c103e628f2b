package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/csg33k/paystub-engine/internal/adapters/pdf"
	sqliteadapter "github.com/csg33k/paystub-engine/internal/adapters/sqlite"
	"github.com/csg33k/paystub-engine/internal/calc"
	"github.com/csg33k/paystub-engine/internal/config"
	"github.com/csg33k/paystub-engine/internal/handlers"
	"github.com/csg33k/paystub-engine/internal/ports"
	"github.com/csg33k/paystub-engine/internal/ratetable"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := sqliteadapter.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer repo.Close()

	if cfg.MigrationsDir != "" {
		applied, err := repo.Migrate(ctx, cfg.MigrationsDir)
		if err != nil {
			log.Fatalf("migrate: %v", err)
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", "versions", applied)
		}
	}

	snap, err := repo.Snapshot(ctx, cfg.TaxYear)
	if err != nil {
		log.Fatalf("read rate tables for %d: %v", cfg.TaxYear, err)
	}
	rep := ratetable.StatusOf(snap)
	for _, w := range rep.Warnings {
		logger.Warn("rate tables incomplete", "year", cfg.TaxYear, "detail", w)
	}
	if !rep.Ready {
		for _, e := range rep.Errors {
			logger.Error("rate tables not ready", "year", cfg.TaxYear, "detail", e)
		}
		logger.Error("refusing to start; provision the year with `taxdata import`", "year", cfg.TaxYear)
		os.Exit(1)
	}

	var store ports.RateTableStore = repo
	if cfg.RateTables == config.TablesMemory {
		mem, err := ratetable.Load(ctx, repo, logger)
		if err != nil {
			log.Fatalf("load rate tables: %v", err)
		}
		store = mem
	}

	engine := calc.New(store, calc.WithLogger(logger), calc.WithDefaultYear(cfg.TaxYear))
	opts := []handlers.Option{
		handlers.WithLogger(logger),
		handlers.WithTaxYear(cfg.TaxYear),
		handlers.WithRenderer(&pdf.Renderer{Footer: "Paystub Engine"}),
	}
	if cfg.AuditLog {
		opts = append(opts, handlers.WithAuditLog(repo))
	}
	h := handlers.New(engine, repo, opts...)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("Paystub engine running on http://localhost:%s", cfg.Port)
	log.Printf("Database: %s (tax year %d, %s rate tables)", cfg.DBPath, cfg.TaxYear, cfg.RateTables)
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		log.Fatal(err)
	}
	if err := serve(ctx, srv, ln, h.Wait, logger); err != nil {
		log.Fatal(err)
	}
}

// serve runs srv until ctx is done, then shuts it down. It returns only
// after in-flight requests have finished and drain has returned.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, drain func(), logger *slog.Logger) error {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "err", err)
		}
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	// Serve returns as soon as Shutdown starts; wait for it to finish
	// before draining the audit queue.
	<-drained
	drain()
	return nil
}
