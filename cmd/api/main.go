package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kirosamy12/otrade-backend/internal/app/apiapp"
	"github.com/kirosamy12/otrade-backend/internal/config"
	"github.com/kirosamy12/otrade-backend/internal/infra/logger"
	"github.com/kirosamy12/otrade-backend/internal/jobs/cleanup"
)

func main() {
	cfgPath := os.Getenv("APP_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := apiapp.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("create api app", zap.Error(err))
	}

	sweepJob := cleanup.New(app.PaymentRepo(), cfg.Cleanup.PendingTTL, log)
	go runCleanupLoop(ctx, sweepJob, cfg.Cleanup.Interval, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Run()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown api app", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api server failed", zap.Error(err))
		}
	}
}

func runCleanupLoop(ctx context.Context, job *cleanup.Job, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}

	if err := job.Run(ctx); err != nil {
		log.Error("cleanup run failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				log.Error("cleanup run failed", zap.Error(err))
			}
		}
	}
}
