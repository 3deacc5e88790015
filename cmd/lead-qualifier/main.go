// cmd/lead-qualifier/main.go
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

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lead-qualifier/internal/common/camunda"
	"lead-qualifier/internal/common/config"
	"lead-qualifier/internal/common/logger"
	"lead-qualifier/internal/common/observability"
	"lead-qualifier/internal/httpapi"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog, err := logger.NewFromConfig(cfg.Logging)
	if err != nil {
		bootLog.Fatal("logger init failed", zap.Error(err))
	}
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("Starting lead qualifier...",
		zap.String("environment", cfg.App.Environment),
		zap.String("driver", cfg.Database.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(cfg.Observability)
	if err != nil {
		zapLog.Fatal("tracing init failed", zap.Error(err))
	}
	defer shutdownTracing(context.Background())

	obs, err := observability.New(cfg.Observability.ServiceName, prometheus.DefaultRegisterer)
	if err != nil {
		zapLog.Warn("otel metrics disabled", zap.Error(err))
	}
	defer obs.Shutdown(context.Background())

	app, err := buildApp(ctx, cfg, log, zapLog)
	if err != nil {
		zapLog.Fatal("startup failed", zap.Error(err))
	}
	defer app.Close()

	readyChecks := map[string]func(context.Context) error{}
	for name, fn := range app.readyChecks {
		readyChecks[name] = fn
	}

	// --- Zeebe workers ---
	var workers []*camunda.Worker
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.Connect(ctx, camunda.ConfigFrom(cfg.Camunda), log)
		if err != nil {
			zapLog.Fatal("zeebe connection failed", zap.Error(err))
		}
		defer zeebe.Close()
		readyChecks["zeebe"] = zeebe.HealthCheck

		workers = startWorkers(zeebe, cfg, app, obs, log)
		zapLog.Info("Zeebe workers started", zap.Int("count", len(workers)))
	}

	// --- HTTP API ---
	srv := &http.Server{
		Addr: cfg.Server.Address,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Service:     app.service,
			Logger:      log,
			ChatLimiter: app.chatLimiter,
			AdminAuth:   app.adminAuth,
			AdminRole:   cfg.Auth.AdminRole,
			CORSOrigins: cfg.Server.CORSOrigins,
			ReadyChecks: readyChecks,
		}),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
		defer cancel()

		for _, w := range workers {
			w.Stop()
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("lead qualifier stopped with error", zap.Error(err))
		return
	}
	zapLog.Info("Lead qualifier stopped")
}
