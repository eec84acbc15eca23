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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"staybook/internal/cache"
	"staybook/internal/config"
	"staybook/internal/database"
	"staybook/internal/gateway/sandbox"
	"staybook/internal/jobs"
	"staybook/internal/notify"
	"staybook/internal/pkg/clock"
	jwtsvc "staybook/internal/pkg/jwt"
	"staybook/internal/pkg/logger"
	"staybook/internal/pkg/pipeline"
	"staybook/internal/server"
	"staybook/internal/tracing"
)

const (
	serviceName     = "staybook-api"
	jobBuffer       = 256
	rabbitPrefetch  = 16
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	base := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(serviceName, cfg.JaegerEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("init tracing")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	tokens := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	hub := notify.NewHub(base.With().Str("component", "notify").Logger())

	dispatcher := jobs.NewDispatcher(base.With().Str("component", "jobs").Logger())
	dispatcher.Handle(jobs.KindAudit, jobs.AuditHandler(base.With().Str("component", "audit").Logger()))
	dispatcher.Handle(jobs.KindNotification, jobs.NotificationHandler(hub, base))
	queue, closeQueue := startQueue(ctx, cfg, dispatcher, base)

	quotes, closeCache := openCache(ctx, cfg.RedisAddr)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	stages := pipeline.Stages{Metrics: pipeline.NewMetrics(reg)}

	gateway := sandbox.New(cfg.GatewaySecret, cfg.GatewayBaseURL)
	services := server.NewServices(db, gateway, queue, quotes, clock.Real(), server.Config{
		CommissionRate: cfg.CommissionRate,
		ReturnURL:      cfg.GatewayReturnURL,
		QuoteTTL:       cfg.QuoteTTL,
	}, stages)

	r := server.NewRouter(services, server.RouterOptions{
		Logger:      base,
		Tokens:      tokens,
		Gateway:     gateway,
		CallbackURL: cfg.GatewayReturnURL,
		Hub:         hub,
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),

		MetricsToken:      cfg.MetricsToken,
		MetricsAllowedIPs: cfg.MetricsAllowedIPs,
		CORSOrigins:       cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.AppEnv).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := closeQueue(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("job queue shutdown")
	}
	if err := closeCache(); err != nil {
		log.Error().Err(err).Msg("cache shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// startQueue returns the configured job queue and its close function. With
// RabbitMQ the API publishes and consumes its own jobs.
func startQueue(ctx context.Context, cfg *config.Config, d *jobs.Dispatcher, base zerolog.Logger) (jobs.Enqueuer, func(context.Context) error) {
	if cfg.JobBackend == config.JobBackendRabbitMQ {
		q, err := jobs.NewRabbitQueue(cfg.RabbitMQURL, cfg.JobQueue, base.With().Str("component", "rabbitmq").Logger())
		if err != nil {
			log.Fatal().Err(err).Msg("connect rabbitmq")
		}
		go func() {
			if err := q.Consume(ctx, d, rabbitPrefetch); err != nil {
				log.Error().Err(err).Msg("rabbitmq consumer")
			}
		}()
		log.Info().Str("queue", cfg.JobQueue).Msg("jobs on rabbitmq")
		return q, func(context.Context) error { return q.Close() }
	}

	q := jobs.NewMemoryQueue(d, cfg.JobWorkers, jobBuffer)
	log.Info().Int("workers", cfg.JobWorkers).Msg("jobs in memory")
	return q, q.Close
}

// openCache prefers Redis and falls back to an in-process cache when no
// address is configured or Redis is unreachable.
func openCache(ctx context.Context, addr string) (cache.Cache, func() error) {
	if addr != "" {
		rc, err := cache.NewRedis(ctx, addr)
		if err == nil {
			log.Info().Str("addr", addr).Msg("quote cache on redis")
			return rc, rc.Close
		}
		log.Warn().Err(err).Str("addr", addr).Msg("redis unavailable, using in-memory quote cache")
	}
	return cache.NewMemory(), func() error { return nil }
}
