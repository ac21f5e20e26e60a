package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pharmabot/internal/adapters/auth/iam"
	"pharmabot/internal/adapters/devicelink"
	"pharmabot/internal/adapters/storage/sqlstore"
	"pharmabot/internal/platform/config"
	"pharmabot/internal/platform/logger"
	"pharmabot/internal/ports/auth"
	"pharmabot/internal/router"
)

// @title Pharmabot API
// @version 1.0
// @description Recetas, tomas planificadas y dispensadores de medicamentos.
// @BasePath /
func main() {
	if err := run(); err != nil {
		logger.NewFromEnv().Error("server stopped", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})

	store, closeDB, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	var verifier auth.AuthVerifier // nil => modo dev
	if cfg.IAMEnabled() {
		v, err := iam.NewVerifier(iam.Config{BaseURL: cfg.IAM.BaseURL, APIKey: cfg.IAM.APIKey})
		if err != nil {
			return err
		}
		verifier = v
	} else {
		log.Warn("IAM not configured, accepting X-Debug-User-ID", nil)
	}

	h := router.NewRouter(router.Options{
		AuthVerifier: verifier,
		Store:        store,
		Notifier:     devicelink.NewNotifier(cfg.Device.HTTPTimeout),
		Logger:       log,
		Device: router.DeviceOptions{
			OnlineTimeout: cfg.Device.OnlineTimeout,
			StrictPairing: cfg.Device.StrictPairing,
			RatePerSec:    cfg.Device.RatePerSec,
			RateBurst:     cfg.Device.RateBurst,
		},
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr, "db_driver": cfg.DBDriver})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore devuelve nil para DB_DRIVER=memory.
func openStore(cfg config.Config) (*sqlstore.DB, func(), error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if driver == "memory" {
		return nil, func() {}, nil
	}

	d, err := sqlstore.ParseDialect(driver)
	if err != nil {
		return nil, nil, err
	}
	db, err := sqlstore.Open(d, cfg.DBDSN)
	if err != nil {
		return nil, nil, err
	}

	store := sqlstore.New(db, d)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, func() { _ = db.Close() }, nil
}
