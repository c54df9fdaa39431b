package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UoA-eResearch/driveoff/internal/archive"
	"github.com/UoA-eResearch/driveoff/internal/manifest"
	"github.com/UoA-eResearch/driveoff/internal/platform/config"
	"github.com/UoA-eResearch/driveoff/internal/platform/httpserver"
	"github.com/UoA-eResearch/driveoff/internal/platform/logger"
	"github.com/UoA-eResearch/driveoff/internal/platform/metrics"
	"github.com/UoA-eResearch/driveoff/internal/security/apikey"
	"github.com/UoA-eResearch/driveoff/internal/store"
	httptransport "github.com/UoA-eResearch/driveoff/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("database setup failed", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		st = pg
	} else {
		log.Warn("no database configured, using in-memory store")
		st = store.NewInMemoryStore()
	}

	keyring, err := apikey.Load(cfg.APIKeyFile)
	if err != nil {
		log.Error("api key setup failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	service := archive.NewService(st, log, m, manifest.Options{
		DirsOnlyThreshold: cfg.ManifestDirsOnlyThreshold,
		Workers:           manifest.DefaultWorkers(),
	})

	jobs := make(chan archive.Job, 16)
	worker := archive.NewWorker(service, jobs, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("worker stopped", "error", err)
		}
	}()

	handler := httptransport.NewHandler(st, log, m, keyring, jobs,
		cfg.VaultRoot, cfg.ArchiveRoot)
	router := httptransport.NewRouter(handler, cfg.CORSHosts)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting driveoff", "addr", cfg.Addr,
		"vault_root", cfg.VaultRoot, "archive_root", cfg.ArchiveRoot)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	if err := httpserver.Shutdown(srv, 10*time.Second); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	<-workerDone
	log.Info("driveoff stopped")
}
