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

	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/handler"
	"github.com/noah-isme/student-records-api/internal/repository"
	"github.com/noah-isme/student-records-api/internal/router"
	"github.com/noah-isme/student-records-api/internal/service"
	"github.com/noah-isme/student-records-api/pkg/config"
	"github.com/noah-isme/student-records-api/pkg/database"
	"github.com/noah-isme/student-records-api/pkg/logger"
	"github.com/noah-isme/student-records-api/pkg/redisclient"
)

// @title Student Records API
// @version 1.0.0
// @description Student grades, attendance and class reports
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	store, closeStore, err := openStore(cfg, logr)
	if err != nil {
		logr.Fatal("failed to open student store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer closeStore()

	metrics := service.NewMetricsService()
	validate := service.NewValidator()
	studentSvc := service.NewStudentService(store, validate, metrics, logr)
	reportSvc := service.NewReportService(store, cfg.Reports.AttendanceThreshold, metrics, logr)
	exportSvc := service.NewExportService(reportSvc, cfg.Reports.ExportTitle, logr)

	engine := router.Setup(cfg, router.Handlers{
		Students: handler.NewStudentHandler(studentSvc),
		Reports:  handler.NewReportHandler(reportSvc, exportSvc),
		Metrics:  handler.NewMetricsHandler(metrics, store, cfg.Store.Driver),
	}, metrics, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openStore builds the StudentStore selected by STORE_DRIVER and returns a
// function releasing its connections.
func openStore(cfg *config.Config, logr *zap.Logger) (repository.StudentStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := database.RunMigrations(db.DB, logr); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		logr.Info("using postgres student store", zap.String("driver", cfg.Database.Driver), zap.String("database", cfg.Database.Name))
		return repository.NewStudentRepository(db), func() { _ = db.Close() }, nil
	case config.StoreRedis:
		client, err := redisclient.New(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		logr.Info("using redis student store", zap.String("addr", redisclient.Addr(cfg.Redis)), zap.String("prefix", cfg.Redis.KeyPrefix))
		return repository.NewRedisStudentRepository(client, cfg.Redis.KeyPrefix), func() { _ = client.Close() }, nil
	default:
		logr.Info("using in-memory student store")
		return repository.NewMemoryStudentRepository(), func() {}, nil
	}
}
