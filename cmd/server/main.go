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

	"github.com/diewo77/fakturera/internal/config"
	"github.com/diewo77/fakturera/internal/db"
	"github.com/diewo77/fakturera/internal/logging"
	"github.com/diewo77/fakturera/internal/server"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	seedOnly := flag.Bool("seed-only", false, "run migrations and seeders, then exit")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := logging.Init(cfg.App.Env); err != nil {
		os.Exit(1)
	}
	defer logging.Sync()
	log := logging.L()

	database, err := db.ConnectAndMigrate(cfg)
	if err != nil {
		log.Fatal("database setup failed", zap.Error(err))
	}
	if *migrateOnly {
		log.Info("migrations applied")
		return
	}
	if cfg.App.Seed || *seedOnly {
		if err := db.Seed(database); err != nil {
			log.Fatal("seeding failed", zap.Error(err))
		}
		log.Info("seed data applied")
		if *seedOnly {
			return
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.New(database, cfg),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}
