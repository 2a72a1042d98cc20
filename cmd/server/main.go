package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetops/vehicle-rental-service/internal/config"
	"github.com/fleetops/vehicle-rental-service/internal/handler"
	"github.com/fleetops/vehicle-rental-service/internal/logger"
	"github.com/fleetops/vehicle-rental-service/internal/query"
	"github.com/fleetops/vehicle-rental-service/internal/repository"
	pg "github.com/fleetops/vehicle-rental-service/internal/repository/postgres"
	"github.com/fleetops/vehicle-rental-service/internal/service"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("config loading failed: %v", err)
	}

	appLogger, err := logger.New(&cfg.Logger)
	if err != nil {
		log.Fatalf("logger initialization failed: %v", err)
	}

	// A registry gap is a programming error; refuse to start on one.
	if err := query.Validate(); err != nil {
		appLogger.Fatal().Err(err).Msg("column registry validation failed")
	}

	ctx := context.Background()
	repo, err := repository.New(ctx, cfg, &appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer repo.Close()

	pool := repo.Pool()
	vehicles := pg.NewVehicleRepository(pool)
	audits := pg.NewAuditRepository(pool)
	txManager := pg.NewTxManager(pool)

	vehicleSvc := service.NewVehicleService(vehicles, audits, txManager, appLogger)

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	handler.Register(engine, repo, vehicleSvc)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: engine}

	go func() {
		appLogger.Info().Str("addr", addr).Msg("service started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info().Msg("shutting down")

	timeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
