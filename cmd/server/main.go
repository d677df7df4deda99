// Command server runs the premium contract API together with the
// notification dispatch loop and the expiry scheduler.
//
// @title       Premium Contracts API
// @version     1.0
// @description Premium subscription contracts for the maritime portal: purchase, payment review, entitlement and notifications.
// @BasePath    /api/v1
//
// @tag.name        Contracts
// @tag.description Purchase and read own contracts
// @tag.name        Premium
// @tag.description Entitlement checks
// @tag.name        Admin
// @tag.description Payment review and outbox operations
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/text/language"

	"github.com/tbourn/go-premium-contracts/docs"
	"github.com/tbourn/go-premium-contracts/internal/config"
	"github.com/tbourn/go-premium-contracts/internal/delivery"
	"github.com/tbourn/go-premium-contracts/internal/domain"
	httpapi "github.com/tbourn/go-premium-contracts/internal/http"
	"github.com/tbourn/go-premium-contracts/internal/observability"
	"github.com/tbourn/go-premium-contracts/internal/repo"
	"github.com/tbourn/go-premium-contracts/internal/services"
	"github.com/tbourn/go-premium-contracts/internal/sysutil"
	"github.com/tbourn/go-premium-contracts/internal/worker"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	sysutil.ConfigureLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty)
	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.Open(cfg.DB.Driver, cfg.DB.DSN, cfg.OTEL.Enabled)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	// Background workers.
	client, closeDelivery := delivery.FromConfig(cfg.Delivery)
	channels := domain.ParseChannels(cfg.Delivery.Channels)
	templates := services.NewTemplates(language.Indonesian)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	if cfg.Dispatch.Enabled {
		d := &services.Dispatcher{
			DB:          db,
			Client:      client,
			MaxAttempts: cfg.Dispatch.MaxAttempts,
			SendTimeout: cfg.Dispatch.SendTimeout,
			BackoffBase: cfg.Dispatch.BackoffBase,
			BackoffMax:  cfg.Dispatch.BackoffMax,
			ClaimTTL:    cfg.Dispatch.ClaimTTL,
		}
		go func() {
			defer close(loopDone)
			worker.NewDispatchLoop(d, cfg.Dispatch.Interval, cfg.Dispatch.BatchSize).Run(workerCtx)
		}()
	} else {
		close(loopDone)
	}

	var sched *worker.Scheduler
	if cfg.Expiry.Enabled {
		expiry := &services.ExpiryService{DB: db, Channels: channels, Templates: templates}
		purge := func(ctx context.Context, now time.Time) (int64, error) {
			return repo.PurgeExpiredIdempotency(ctx, db, now)
		}
		sched = worker.NewScheduler(expiry, purge, cfg.Expiry)
		if err := sched.Start(); err != nil {
			log.Fatal().Err(err).Msg("scheduler start failed")
		}
	}

	// HTTP.
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		docs.SwaggerInfo.Version = appVersion
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	httpapi.RegisterRoutes(r, db, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", appVersion).
			Bool("dispatch", cfg.Dispatch.Enabled).
			Bool("expiry", cfg.Expiry.Enabled).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if sched != nil {
		select {
		case <-sched.Stop().Done():
		case <-shutdownCtx.Done():
			log.Warn().Msg("scheduler jobs still running at shutdown")
		}
	}
	cancelWorkers()
	select {
	case <-loopDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("dispatch loop did not stop in time")
	}
	if err := closeDelivery(); err != nil {
		log.Error().Err(err).Msg("delivery close")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped")
}
