package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/base-app/internal/config"
	"github.com/diewo77/base-app/internal/db"
	"github.com/diewo77/base-app/internal/logger"
	"github.com/diewo77/base-app/internal/server"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	slogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if *migrateOnlyFlag {
		if err := db.RunMigrations(cfg); err != nil {
			slogger.Error("migrate-only failed", "error", err)
			os.Exit(1)
		}
		slogger.Info("migrations completed; exiting as requested")
		return
	}

	dbConn, err := db.ConnectAndMigrate(cfg, slogger)
	if err != nil {
		slogger.Error("db connection failed", "error", err)
		os.Exit(1)
	}

	slogger.Info("starting server", "env", cfg.Env, "port", cfg.Port)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(dbConn, cfg, slogger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slogger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slogger.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slogger.Error("shutdown error", "error", err)
	}
	slogger.Info("server gracefully stopped")
}
