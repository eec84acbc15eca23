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
	"staybook/internal/modules/settlement"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/logger"
	"staybook/internal/pkg/pipeline"
)

const parallelWallets = 4

// settlement opens a pending settlement for every wallet over the period
// that ended at today's midnight UTC.
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
	queue := jobs.NewMemoryQueue(d, 1, 64)

	clk := clock.Real()
	end := clock.Date(clk.Now())
	start := end.Add(-cfg.SettlementPeriod)

	svc := settlement.NewService(db, queue, clk, pipeline.Stages{})
	sum, err := svc.SettleAll(logger.WithContext(ctx, base), start, end, parallelWallets)
	if err != nil {
		log.Error().Err(err).Msg("settlement run interrupted")
	}
	if sum != nil {
		log.Info().
			Time("period_start", start).
			Time("period_end", end).
			Int("created", len(sum.Created)).
			Int("skipped", sum.Skipped).
			Int("failed", sum.Failed).
			Msg("settlement run finished")
	}
	// os.Exit skips defers; drain audit jobs first.
	if cerr := queue.Close(context.Background()); cerr != nil {
		log.Error().Err(cerr).Msg("job queue shutdown")
	}
	if err != nil || (sum != nil && sum.Failed > 0) {
		os.Exit(1)
	}
}
