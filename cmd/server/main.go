package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Simplici0/goldsmith/internal/config"
	"github.com/Simplici0/goldsmith/internal/db"
	"github.com/Simplici0/goldsmith/internal/events"
	"github.com/Simplici0/goldsmith/internal/migrations"
	"github.com/Simplici0/goldsmith/internal/obs"
	"github.com/Simplici0/goldsmith/internal/pricing"
	"github.com/Simplici0/goldsmith/internal/rates"
	"github.com/Simplici0/goldsmith/internal/reprice"
	"github.com/Simplici0/goldsmith/internal/seed"
	"github.com/Simplici0/goldsmith/internal/store"
)

type server struct {
	store    *store.Store
	rates    rates.Source
	reprice  *reprice.Job
	margin   float64
	metrics  *obs.Metrics
	registry *prometheus.Registry
	log      zerolog.Logger
	validate *validator.Validate
	limiter  *rate.Limiter
}

func main() {
	cfg := config.Load()
	logger := obs.NewLogger(cfg.LogLevel, cfg.LogFile)
	for _, w := range cfg.Warnings {
		logger.Warn().Msg(w)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		return err
	}

	stats, err := seed.Run(database, seed.Config{SampleInventory: cfg.IsDev(), ProfitMargin: cfg.ProfitMargin})
	if err != nil {
		return err
	}
	logger.Info().Int("inserts", stats.Inserts).Msg("seed complete")

	st := store.New(database)

	var source rates.Source = rates.NewSettingsSource(st)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, rate cache disabled")
		} else {
			source = rates.NewCachedSource(source, rdb, cfg.RateCacheTTL, logger)
		}
	}

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := obs.NewMetrics(registry)

	srv := newServer(st, source, cfg.ProfitMargin, metrics, registry, logger, rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst))
	srv.reprice = newRepriceJob(cfg, st, source, srv, publisher, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RepriceInterval > 0 {
		go srv.reprice.Start(ctx, cfg.RepriceInterval)
		logger.Info().Dur("interval", cfg.RepriceInterval).Str("feed", cfg.RateFeed).Msg("scheduled repricing enabled")
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newPublisher(cfg config.Config, logger zerolog.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NewLogPublisher(logger)
	}
	return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
}

// newRepriceJob prices with the configured feed. Simulated rates are stored through rw so cached rates are dropped too.
func newRepriceJob(cfg config.Config, st *store.Store, source rates.Source, rw reprice.RateWriter, publisher events.Publisher, metrics *obs.Metrics, logger zerolog.Logger) *reprice.Job {
	opts := reprice.Options{
		Threshold: &cfg.RepriceThreshold,
		Margin:    pricing.Margin(cfg.ProfitMargin),
		Publisher: publisher,
		Metrics:   metrics,
		Logger:    logger.With().Str("component", "reprice").Logger(),
	}
	if cfg.RateFeed == config.RateFeedSimulated {
		source = rates.NewSimulatedFeed(rates.DefaultBaseGoldRate, rates.DefaultBaseSilverRate, nil)
		opts.RateWriter = rw
	}
	return reprice.New(st, source, opts)
}

func newServer(st *store.Store, source rates.Source, margin float64, metrics *obs.Metrics, registry *prometheus.Registry, logger zerolog.Logger, limiter *rate.Limiter) *server {
	return &server{
		store:    st,
		rates:    source,
		margin:   margin,
		metrics:  metrics,
		registry: registry,
		log:      logger,
		validate: newValidator(),
		limiter:  limiter,
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(instrument(s.metrics))
	}

	r.Get("/health", s.handleHealth)
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(rateLimit(s.limiter))
		}

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
		r.Get("/rates", s.handleGetRates)
		r.Put("/rates", s.handlePutRates)

		r.Post("/pricing/calculate", s.handleCalculatePrice)
		r.Get("/pricing/purities", s.handlePurityOptions)
		r.Post("/reprice", s.handleReprice)

		r.Get("/categories", s.handleListCatalog)
		r.Post("/categories", s.handleCreateCatalog)
		r.Put("/categories/{id}", s.handleUpdateCatalog)
		r.Delete("/categories/{id}", s.handleDeleteCatalog)

		r.Get("/inventory", s.handleListInventory)
		r.Post("/inventory", s.handleCreateInventory)
		r.Get("/inventory/low-stock", s.handleLowStock)
		r.Get("/inventory/{id}", s.handleGetInventory)
		r.Put("/inventory/{id}", s.handleUpdateInventory)

		r.Get("/bills", s.handleListBills)
		r.Post("/bills", s.handleCreateBill)
		r.Post("/bills/lines", s.handlePriceBillLine)
		r.Get("/bills/{id}", s.handleGetBill)
		r.Put("/bills/{id}", s.handleUpdateBill)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
