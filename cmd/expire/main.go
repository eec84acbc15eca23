package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"staybook/internal/config"
	"staybook/internal/database"
	"staybook/internal/jobs"
	"staybook/internal/modules/catalog"
	"staybook/internal/modules/voucher"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/logger"
	"staybook/internal/pkg/pipeline"
)

// expire flips promotions and vouchers whose end date has passed. Run it
// daily; bookings already treat them as inactive.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	base := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	d := jobs.NewDispatcher(base)
	d.Handle(jobs.KindAudit, jobs.AuditHandler(base))
	queue := jobs.NewMemoryQueue(d, 1, 16)
	defer func() { _ = queue.Close(context.Background()) }()

	clk := clock.Real()
	promotions, err := catalog.NewService(db, queue, clk, pipeline.Stages{}).ExpirePromotions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("expire promotions")
	}
	vouchers, err := voucher.NewService(db, nil, 0, queue, clk, pipeline.Stages{}).ExpireVouchers(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("expire vouchers")
	}

	log.Info().Int64("promotions", promotions).Int64("vouchers", vouchers).Msg("expiry completed")
}
