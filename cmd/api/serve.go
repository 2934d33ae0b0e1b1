package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/emilythestrangee/subreddit/backend/internal/auth"
	"github.com/emilythestrangee/subreddit/backend/internal/database"
	"github.com/emilythestrangee/subreddit/backend/internal/events"
	"github.com/emilythestrangee/subreddit/backend/internal/mail"
	"github.com/emilythestrangee/subreddit/backend/internal/media"
	"github.com/emilythestrangee/subreddit/backend/internal/middleware"
	"github.com/emilythestrangee/subreddit/backend/internal/server"
	"github.com/emilythestrangee/subreddit/backend/internal/service"
	"github.com/emilythestrangee/subreddit/backend/internal/store"
	"github.com/emilythestrangee/subreddit/backend/internal/telemetry"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.GinMode)
	log := slog.Default()

	shutdownTracing, err := telemetry.Init(ctx, cfg.TraceExporter, version)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Warn("close failed", "err", err)
			}
		}
	}()

	deps := server.Deps{Logger: log}

	var st store.Store
	if cfg.Database.Driver == "memory" {
		log.Warn("using the in-memory store; data is lost on exit")
		st = store.NewMemory()
	} else {
		db, err := database.New(cfg.Database)
		if err != nil {
			return err
		}
		closers = append(closers, db)
		st = store.NewGorm(db.GetDB())
		deps.DB = db
	}

	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		closers = append(closers, rdb)
	}
	if cfg.RateLimitPerMinute > 0 {
		if rdb != nil {
			deps.Limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitPerMinute, time.Minute)
		} else {
			deps.Limiter = middleware.NewLocalLimiter(cfg.RateLimitPerMinute)
		}
	}

	var publisher events.Publisher = events.LogPublisher{Logger: log}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}

	var mailer mail.Mailer = mail.LogMailer{Logger: log}
	if cfg.SMTP.Host != "" {
		mailer = mail.NewSMTPMailer(cfg.SMTP)
	}

	storage, err := newStorage(ctx)
	if err != nil {
		return err
	}
	if c, ok := storage.(io.Closer); ok {
		closers = append(closers, c)
	}

	deps.Tokens = auth.NewTokens(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.VerifyTTL)
	deps.Uploader = &media.Uploader{Storage: storage, MaxBytes: cfg.Media.MaxBytes}
	deps.Services = service.New(service.Options{
		Store:     st,
		Events:    publisher,
		Tokens:    deps.Tokens,
		Mailer:    mailer,
		Logger:    log,
		PublicURL: cfg.PublicURL,
	})
	closers = append(closers, deps.Services)

	srv := server.NewServer(cfg, deps)

	errc := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newStorage(ctx context.Context) (media.Storage, error) {
	if cfg.Media.Backend == "gcs" {
		return media.NewGCS(ctx, cfg.Media.GCSBucket)
	}
	return &media.Disk{Root: cfg.Media.Dir, BaseURL: cfg.PublicURL + "/static"}, nil
}
