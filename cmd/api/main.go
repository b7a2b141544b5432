package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hotelscout/internal/adapters/etg"
	server "hotelscout/internal/adapters/http_server"
	"hotelscout/internal/adapters/llm"
	"hotelscout/internal/adapters/observability"
	redisad "hotelscout/internal/adapters/redis"
	"hotelscout/internal/search"
	"hotelscout/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// deps
	inv, err := etg.New(cfg.ETGBase, cfg.ETGKeyID, cfg.ETGAPIKey, cfg.ETGTimeout, cfg.ETGRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("inventory client init failed")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// Order matters: the last provider is the fallback for unmatched models.
	registry := llm.NewRegistry(
		llm.NewAnthropic(cfg.AnthropicAPIKey, cfg.LLMTimeout),
		llm.NewGoogle(cfg.GoogleAPIKey, cfg.LLMTimeout),
	)

	pipeline := search.NewPipeline(inv, registry, search.Config{
		AnalysisCap:  cfg.AnalysisCap,
		FloorPrice:   cfg.FloorPrice,
		PresortLimit: cfg.PresortLimit,
		ContentBatch: cfg.ContentBatch,
		ReviewsBatch: cfg.ReviewsBatch,
		ReviewMaxAge: cfg.ReviewMaxAge,
		ReviewSample: cfg.ReviewSample,
		SummaryTopN:  cfg.SummaryTopN,
		ScoringModel: cfg.ScoringModel,
		Scoring: search.ScoringConfig{
			BatchSize:    cfg.ScoringBatch,
			Retries:      cfg.ScoringRetries,
			RetryBackoff: cfg.RetryBackoff,
		},
	}, log.Logger)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Pipeline: pipeline,
		Inv:      inv,
		Cache:    cache,
		CacheTTL: int(cfg.CacheTTL.Seconds()),
	})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           observability.MetricsHandler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("shutdown complete")
}
