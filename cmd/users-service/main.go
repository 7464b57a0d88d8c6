package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/alfagnish/users-service/internal/config"
	"github.com/alfagnish/users-service/internal/database"
	"github.com/alfagnish/users-service/internal/logger"
	"github.com/alfagnish/users-service/internal/server"
	"github.com/alfagnish/users-service/internal/users"
)

func main() {
	// 1. Load configuration from the optional config file and environment.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("config loaded",
		zap.String("listen", cfg.Server.ListenAddr),
		zap.String("db_host", cfg.DB.Host),
		zap.String("db_port", cfg.DB.Port),
		zap.String("db_name", cfg.DB.Name),
		zap.Bool("cors", cfg.Server.CORSEnabled),
		zap.Bool("metrics", cfg.Server.MetricsEnabled),
	)

	// 2. Every request opens its own connection; nothing is dialled here.
	tracer := database.NewSlowQueryTracer(log, cfg.DB.SlowQueryThreshold)
	connector := database.NewPgxConnector(log, tracer)
	store := users.NewStore(connector, database.EnvSource(cfg.DB), log)

	// 3. Set up the chi router.
	handler := server.New(cfg.Server, store, log)

	// 4. Start the HTTP server.
	srv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("users service listening", zap.String("addr", cfg.Server.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-done
	log.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown error", zap.Error(err))
	}

	log.Info("users service stopped")
}
