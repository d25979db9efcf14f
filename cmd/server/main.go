package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fstt-incidents/api"
	"fstt-incidents/config"
	"fstt-incidents/core/rbac"
	"fstt-incidents/core/session"
	"fstt-incidents/core/store"
	"fstt-incidents/core/utils"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the config file")
	flag.Parse()

	logger := utils.NewLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("config: %v", err)
		os.Exit(1)
	}

	db, err := store.NewDB(cfg, logger)
	if err != nil {
		logger.Errorf("database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := store.ApplyMigrations(ctx, db, cfg.DBDriver, logger); err != nil {
		logger.Errorf("migrations: %v", err)
		os.Exit(1)
	}

	users := store.NewUsersStore(db)
	departments := store.NewDepartmentsStore(db)
	incidents := store.NewIncidentsStore(db)
	audits := store.NewAuditStore(db)

	if cfg.SeedDefaults {
		if err := store.Seed(ctx, departments, users, logger); err != nil {
			logger.Errorf("seed: %v", err)
			os.Exit(1)
		}
	}

	sessionStore := session.NewMemoryStore()
	sessions := session.NewManager(sessionStore, cfg, logger)

	sweeper := session.NewSweeper(sessionStore, cfg, logger)
	if cfg.SessionSweep.Enabled {
		if err := sweeper.Start(); err != nil {
			logger.Errorf("session sweeper: %v", err)
			os.Exit(1)
		}
		defer sweeper.Stop()
	}

	policy, err := rbac.NewPolicy()
	if err != nil {
		logger.Errorf("rbac: %v", err)
		os.Exit(1)
	}

	server := api.NewServer(cfg, logger, users, departments, incidents, audits, sessions, policy)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server: %v", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Printf("received %s, shutting down", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("shutdown: %v", err)
		}
	}
}
