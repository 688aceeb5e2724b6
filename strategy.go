package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lukemcguire/linkwalker/config"
	"github.com/lukemcguire/linkwalker/crawler"
	"github.com/lukemcguire/linkwalker/walker"
)

// buildStrategies returns every crawl strategy keyed by its config name.
// Both share one HTTP client and validator. progress, when non-nil,
// receives the static crawler's per-page events.
func buildStrategies(cfg *config.Config, logger zerolog.Logger, progress chan<- crawler.CrawlEvent) (map[string]crawler.Strategy, error) {
	ccfg := cfg.CrawlerConfig()
	client := crawler.NewHTTPClient()
	validator := crawler.NewValidator(client, ccfg)

	opts := []crawler.Option{
		crawler.WithLogger(logger.With().Str("strategy", config.StrategyStatic).Logger()),
		crawler.WithFetcher(crawler.NewHTTPFetcher(client, ccfg)),
		crawler.WithValidator(validator),
	}
	if progress != nil {
		opts = append(opts, crawler.WithProgress(progress))
	}
	static, err := crawler.New(ccfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("static strategy: %w", err)
	}

	rendered := walker.New(cfg.Launcher(), validator, cfg.WalkerConfig(),
		walker.WithLogger(logger.With().Str("strategy", config.StrategyRendered).Str("engine", cfg.Rendering.Engine).Logger()))

	return map[string]crawler.Strategy{
		config.StrategyStatic:   static,
		config.StrategyRendered: rendered,
	}, nil
}
