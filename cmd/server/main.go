// Command server runs the Easy Automations API and the in-process sweep
// scheduler.
//
//	@title						Easy Automations API
//	@version					1.0
//	@description				Event-driven WhatsApp template automation for salon tenants.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/diljot111/easy-software/internal/config"
	httpapi "github.com/diljot111/easy-software/internal/http"
	"github.com/diljot111/easy-software/internal/observability"
	"github.com/diljot111/easy-software/internal/remotedb"
	"github.com/diljot111/easy-software/internal/repo"
	"github.com/diljot111/easy-software/internal/runlock"
	"github.com/diljot111/easy-software/internal/scheduler"
	"github.com/diljot111/easy-software/internal/services"
	"github.com/diljot111/easy-software/internal/shortlink"
	"github.com/diljot111/easy-software/internal/sysutil"
	"github.com/diljot111/easy-software/internal/whatsapp"
)

const version = "1.0.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr, cfg.OTEL.ServiceName)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.Open(cfg.DBDriver, cfg.DBPath, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("open store")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate store")
	}

	var (
		locker     runlock.Locker
		redisClose func() error
	)
	if cfg.Redis.Addr != "" {
		rl := runlock.NewRedisLocker(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}), "easy:run:")
		locker, redisClose = rl, rl.Close
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis run lock")
	} else {
		locker = runlock.NewLocalLocker()
	}

	wa := whatsapp.New(whatsapp.Config{
		BaseURL:    cfg.WhatsApp.BaseURL,
		APIVersion: cfg.WhatsApp.APIVersion,
		Timeout:    cfg.WhatsApp.Timeout,
	}, nil)
	shortener := shortlink.New(shortlink.Config{
		Endpoint:       cfg.Shortener.URL,
		Token:          cfg.Shortener.Token,
		HeaderID:       cfg.Shortener.HeaderID,
		DefaultBaseURL: cfg.Automation.DefaultBaseURL,
		Timeout:        cfg.Shortener.Timeout,
	}, nil)
	shortener.OnFallback = observability.ShortenerFallback

	templates := services.NewTemplateCache(cfg.Automation.TemplateTTL)
	automation := &services.AutomationService{
		DB: db,
		Dialer: remotedb.MySQLDialer{
			ConnectTimeout: cfg.Automation.ConnectTimeout,
			QueryTimeout:   cfg.Automation.QueryTimeout,
			Location:       cfg.Automation.Location(),
		},
		Sender:    wa,
		Shortener: shortener,
		Templates: templates,
		Locker:    locker,
		Cfg:       cfg.Automation,
	}

	sched := scheduler.New(func(ctx context.Context) {
		if _, err := automation.RunAll(ctx); err != nil {
			log.Error().Err(err).Msg("sweep failed")
		}
	}, cfg.Automation.SweepInterval)
	sched.Start()

	r := gin.New()
	httpapi.RegisterRoutes(r, db, httpapi.Services{
		Automation: automation,
		Sweeper:    sched,
		Rules:      &services.RuleService{DB: db},
		Templates:  &services.TemplateService{DB: db, Lister: wa, Cache: templates},
	}, cfg)

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
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("sweep did not finish before shutdown")
	}
	if redisClose != nil {
		if err := redisClose(); err != nil {
			log.Warn().Err(err).Msg("redis close")
		}
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
