// Command reprice runs a single repricing pass over the inventory and exits.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/Simplici0/goldsmith/internal/config"
	"github.com/Simplici0/goldsmith/internal/db"
	"github.com/Simplici0/goldsmith/internal/events"
	"github.com/Simplici0/goldsmith/internal/migrations"
	"github.com/Simplici0/goldsmith/internal/obs"
	"github.com/Simplici0/goldsmith/internal/pricing"
	"github.com/Simplici0/goldsmith/internal/rates"
	"github.com/Simplici0/goldsmith/internal/reprice"
	"github.com/Simplici0/goldsmith/internal/store"
)

func main() {
	feed := flag.String("feed", "", "rate feed to use: stored or simulated (defaults to RATE_FEED)")
	threshold := flag.Float64("threshold", -1, "relative change needed to update an item (defaults to REPRICE_THRESHOLD)")
	flag.Parse()

	cfg := config.Load()
	logger := obs.NewLogger(cfg.LogLevel, cfg.LogFile)
	for _, w := range cfg.Warnings {
		logger.Warn().Msg(w)
	}

	if *feed != "" {
		parsed, err := config.ParseRateFeed(*feed)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid -feed")
		}
		cfg.RateFeed = parsed
	}
	if *threshold >= 0 {
		cfg.RepriceThreshold = *threshold
	}

	report, err := run(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("reprice failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Fatal().Err(err).Msg("write report")
	}
	if report.Failed > 0 {
		os.Exit(1)
	}
}

func run(cfg config.Config, logger zerolog.Logger) (reprice.Report, error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return reprice.Report{}, err
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		return reprice.Report{}, err
	}

	st := store.New(database)

	var publisher events.Publisher = events.NewLogPublisher(logger)
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
	}
	defer publisher.Close()

	opts := reprice.Options{
		Threshold: &cfg.RepriceThreshold,
		Margin:    pricing.Margin(cfg.ProfitMargin),
		Publisher: publisher,
		Logger:    logger,
	}
	var source rates.Source = rates.NewSettingsSource(st)
	if cfg.RateFeed == config.RateFeedSimulated {
		source = rates.NewSimulatedFeed(rates.DefaultBaseGoldRate, rates.DefaultBaseSilverRate, nil)
		opts.RateWriter = st
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return reprice.New(st, source, opts).Run(ctx)
}
