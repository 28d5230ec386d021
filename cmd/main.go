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

	"github.com/sirupsen/logrus"

	"github.com/Vasu1712/algonomic-backend/internal/auth"
	"github.com/Vasu1712/algonomic-backend/internal/config"
	"github.com/Vasu1712/algonomic-backend/internal/logging"
	"github.com/Vasu1712/algonomic-backend/internal/storage/disk"
	"github.com/Vasu1712/algonomic-backend/internal/storage/memory"
	"github.com/Vasu1712/algonomic-backend/internal/storage/objectstore"
	"github.com/Vasu1712/algonomic-backend/internal/storage/postgres"
	"github.com/Vasu1712/algonomic-backend/internal/storage/valkey"
	"github.com/Vasu1712/algonomic-backend/internal/uploads"
	"github.com/Vasu1712/algonomic-backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

// app holds the long-lived dependencies shared by the handlers.
type app struct {
	store   *uploads.Store
	uploads *uploads.Service
	auth    *auth.Service
	hub     *ws.Hub
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	a := &app{hub: ws.NewHub()}

	var blobs uploads.Blobs
	switch cfg.BlobBackend {
	case "s3":
		b, err := objectstore.New(ctx, objectstore.Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Prefix:       "uploads/",
		})
		if err != nil {
			return nil, err
		}
		blobs = b
	default:
		b, err := disk.NewBlobs(cfg.UploadRoot)
		if err != nil {
			return nil, err
		}
		blobs = b
	}

	var index uploads.Index
	switch cfg.IndexBackend {
	case "valkey":
		idx, err := valkey.Dial(cfg.ValkeyAddr)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, idx.Close)
		index = idx
	default:
		index = memory.NewUploadIndex()
	}

	var users auth.UserStore
	switch cfg.UserStore {
	case "postgres":
		pg, err := postgres.NewUserStore(ctx, cfg.DatabaseDSN, logging.Component(log, "postgres"))
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = pg.Close() })
		if err := pg.EnsureSchema(ctx); err != nil {
			a.close()
			return nil, err
		}
		users = pg
	default:
		users = memory.NewUserStore()
	}

	var opts []uploads.Option
	if cfg.RetentionPolicy == config.RetentionDurable {
		opts = append(opts, uploads.WithTTL(cfg.RetentionTTL))
	}
	a.store = uploads.NewStore(blobs, index, opts...)
	a.uploads = uploads.NewService(a.store, cfg.MaxUploadBytes, cfg.RetentionPolicy, logging.Component(log, "uploads"))
	a.auth = auth.NewService(users, cfg.JWTSecret, cfg.TokenTTL, logging.Component(log, "auth"))

	log.WithFields(logrus.Fields{
		"blobs":     cfg.BlobBackend,
		"index":     cfg.IndexBackend,
		"users":     cfg.UserStore,
		"retention": cfg.RetentionPolicy,
	}).Info("backends ready")
	return a, nil
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer a.close()

	go a.hub.Run(ctx)

	if cfg.RetentionPolicy == config.RetentionDurable {
		sweeper, err := uploads.NewSweeper(a.store, cfg.SweepSchedule, logging.Component(log, "sweeper"))
		if err != nil {
			return err
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(cfg, log, a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server started at %s", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
