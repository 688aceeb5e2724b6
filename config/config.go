// Package config loads linkwalker settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lukemcguire/linkwalker/crawler"
	"github.com/lukemcguire/linkwalker/urlutil"
	"github.com/lukemcguire/linkwalker/walker"
)

// Strategy names.
const (
	StrategyStatic   = "static"
	StrategyRendered = "rendered"
)

// Browser engines for the rendered strategy.
const (
	EnginePlaywright = "playwright"
	EngineChromedp   = "chromedp"
)

// Config is the full linkwalker configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Crawl     CrawlConfig     `yaml:"crawl"`
	Rendering RenderingConfig `yaml:"rendering"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64    `yaml:"max_body_bytes"`
	MemoryLimitMB   int64    `yaml:"memory_limit_mb"`
}

// CrawlConfig controls the static strategy and link validation.
type CrawlConfig struct {
	Strategy            string   `yaml:"strategy"`
	DefaultMaxDepth     int      `yaml:"default_max_depth"`
	MaxDepthLimit       int      `yaml:"max_depth_limit"`
	CrawlTimeout        Duration `yaml:"crawl_timeout"`
	FetchTimeout        Duration `yaml:"fetch_timeout"`
	ProbeTimeout        Duration `yaml:"probe_timeout"`
	Concurrency         int      `yaml:"concurrency"`
	RateLimit           float64  `yaml:"rate_limit"`
	Retries             int      `yaml:"retries"`
	RetryDelay          Duration `yaml:"retry_delay"`
	UserAgent           string   `yaml:"user_agent"`
	MaxBodyBytes        int64    `yaml:"max_body_bytes"`
	SkipNonHTTP         bool     `yaml:"skip_non_http"`
	ReportFetchFailures bool     `yaml:"report_fetch_failures"`
	Scope               string   `yaml:"scope"`
	Visited             string   `yaml:"visited"`
}

// RenderingConfig controls the browser-driven strategy.
type RenderingConfig struct {
	Engine            string   `yaml:"engine"`
	Headless          bool     `yaml:"headless"`
	NavigationTimeout Duration `yaml:"navigation_timeout"`
	MenuReadySelector string   `yaml:"menu_ready_selector"`
	MenuSelector      string   `yaml:"menu_selector"`
	ContentSelector   string   `yaml:"content_selector"`
	PageExtension     string   `yaml:"page_extension"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            3000,
			ReadTimeout:     DurationFrom(15 * time.Second),
			WriteTimeout:    DurationFrom(6 * time.Minute),
			ShutdownTimeout: DurationFrom(10 * time.Second),
			MaxBodyBytes:    1 << 20,
		},
		Crawl: CrawlConfig{
			Strategy:            StrategyStatic,
			DefaultMaxDepth:     2,
			MaxDepthLimit:       10,
			CrawlTimeout:        DurationFrom(crawler.DefaultCrawlTimeout),
			FetchTimeout:        DurationFrom(crawler.DefaultFetchTimeout),
			ProbeTimeout:        DurationFrom(crawler.DefaultProbeTimeout),
			Concurrency:         crawler.DefaultConcurrency,
			RetryDelay:          DurationFrom(time.Second),
			UserAgent:           crawler.DefaultUserAgent,
			MaxBodyBytes:        crawler.DefaultMaxBodyBytes,
			ReportFetchFailures: true,
			Scope:               string(urlutil.ScopePrefix),
			Visited:             string(crawler.VisitedMemory),
		},
		Rendering: RenderingConfig{
			Engine:            EnginePlaywright,
			Headless:          true,
			NavigationTimeout: DurationFrom(30 * time.Second),
			MenuReadySelector: "li.tree-node",
			MenuSelector:      "li.tree-node > a",
			ContentSelector:   "#mc-main-content",
			PageExtension:     ".htm",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path on top of the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer fh.Close()
		if err := decodeYAML(fh, &cfg); err != nil {
			return nil, err
		}
	}
	return finish(cfg, os.LookupEnv)
}

// LoadFromReader decodes configuration from an arbitrary reader. The
// environment is not consulted.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decodeYAML(r, &cfg); err != nil {
		return nil, err
	}
	return finish(cfg, func(string) (string, bool) { return "", false })
}

func finish(cfg Config, lookup func(string) (string, bool)) (*Config, error) {
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// applyEnv overrides selected settings from the environment.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("PORT must be a number: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("LINKWALKER_STRATEGY"); ok && v != "" {
		c.Crawl.Strategy = v
	}
	if v, ok := lookup("LINKWALKER_LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	return nil
}

func (c *Config) normalise() {
	c.Crawl.Strategy = strings.ToLower(strings.TrimSpace(c.Crawl.Strategy))
	c.Crawl.Scope = strings.ToLower(strings.TrimSpace(c.Crawl.Scope))
	c.Crawl.Visited = strings.ToLower(strings.TrimSpace(c.Crawl.Visited))
	c.Crawl.UserAgent = strings.TrimSpace(c.Crawl.UserAgent)
	c.Rendering.Engine = strings.ToLower(strings.TrimSpace(c.Rendering.Engine))
	c.Rendering.MenuReadySelector = strings.TrimSpace(c.Rendering.MenuReadySelector)
	c.Rendering.MenuSelector = strings.TrimSpace(c.Rendering.MenuSelector)
	c.Rendering.ContentSelector = strings.TrimSpace(c.Rendering.ContentSelector)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

// Validate enforces the invariants the rest of the program relies on.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535 (got %d)", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be > 0 (got %d)", c.Server.MaxBodyBytes)
	}
	if c.Server.MemoryLimitMB < 0 {
		return fmt.Errorf("server.memory_limit_mb must be >= 0 (got %d)", c.Server.MemoryLimitMB)
	}

	switch c.Crawl.Strategy {
	case StrategyStatic, StrategyRendered:
	default:
		return fmt.Errorf("crawl.strategy must be %q or %q (got %q)", StrategyStatic, StrategyRendered, c.Crawl.Strategy)
	}
	if c.Crawl.MaxDepthLimit < 0 {
		return fmt.Errorf("crawl.max_depth_limit must be >= 0 (got %d)", c.Crawl.MaxDepthLimit)
	}
	if c.Crawl.DefaultMaxDepth < 0 || c.Crawl.DefaultMaxDepth > c.Crawl.MaxDepthLimit {
		return fmt.Errorf("crawl.default_max_depth must be between 0 and %d (got %d)", c.Crawl.MaxDepthLimit, c.Crawl.DefaultMaxDepth)
	}
	if c.Crawl.Concurrency <= 0 {
		return fmt.Errorf("crawl.concurrency must be > 0 (got %d)", c.Crawl.Concurrency)
	}
	if c.Crawl.RateLimit < 0 {
		return fmt.Errorf("crawl.rate_limit must be >= 0 (got %v)", c.Crawl.RateLimit)
	}
	if c.Crawl.Retries < 0 {
		return fmt.Errorf("crawl.retries must be >= 0 (got %d)", c.Crawl.Retries)
	}
	if c.Crawl.MaxBodyBytes <= 0 {
		return fmt.Errorf("crawl.max_body_bytes must be > 0 (got %d)", c.Crawl.MaxBodyBytes)
	}
	if c.Crawl.UserAgent == "" {
		return errors.New("crawl.user_agent must be set")
	}
	switch urlutil.Scope(c.Crawl.Scope) {
	case urlutil.ScopePrefix, urlutil.ScopeHost:
	default:
		return fmt.Errorf("crawl.scope must be %q or %q (got %q)", urlutil.ScopePrefix, urlutil.ScopeHost, c.Crawl.Scope)
	}
	switch crawler.VisitedKind(c.Crawl.Visited) {
	case crawler.VisitedMemory, crawler.VisitedBloom:
	default:
		return fmt.Errorf("crawl.visited must be %q or %q (got %q)", crawler.VisitedMemory, crawler.VisitedBloom, c.Crawl.Visited)
	}

	switch c.Rendering.Engine {
	case EnginePlaywright, EngineChromedp:
	default:
		return fmt.Errorf("rendering.engine must be %q or %q (got %q)", EnginePlaywright, EngineChromedp, c.Rendering.Engine)
	}
	if c.Rendering.MenuSelector == "" || c.Rendering.ContentSelector == "" {
		return errors.New("rendering.menu_selector and rendering.content_selector must be set")
	}
	return nil
}

// CrawlerConfig converts the crawl section into crawler settings.
func (c Config) CrawlerConfig() crawler.Config {
	return crawler.Config{
		Concurrency:  c.Crawl.Concurrency,
		FetchTimeout: c.Crawl.FetchTimeout.Duration,
		ProbeTimeout: c.Crawl.ProbeTimeout.Duration,
		CrawlTimeout: c.Crawl.CrawlTimeout.Duration,
		RateLimit:    c.Crawl.RateLimit,
		Retry: crawler.RetryPolicy{
			MaxRetries: c.Crawl.Retries,
			BaseDelay:  c.Crawl.RetryDelay.Duration,
			MaxDelay:   30 * time.Second,
		},
		UserAgent:           c.Crawl.UserAgent,
		MaxBodyBytes:        c.Crawl.MaxBodyBytes,
		SkipNonHTTP:         c.Crawl.SkipNonHTTP,
		ReportFetchFailures: c.Crawl.ReportFetchFailures,
		Scope:               urlutil.Scope(c.Crawl.Scope),
		Visited:             crawler.VisitedKind(c.Crawl.Visited),
	}
}

// WalkerConfig converts the rendering section into walker settings.
func (c Config) WalkerConfig() walker.Config {
	return walker.Config{
		MenuReadySelector: c.Rendering.MenuReadySelector,
		MenuSelector:      c.Rendering.MenuSelector,
		ContentSelector:   c.Rendering.ContentSelector,
		PageExtension:     c.Rendering.PageExtension,
		CrawlTimeout:      c.Crawl.CrawlTimeout.Duration,
	}
}

// Launcher returns the browser launcher for the configured engine.
func (c Config) Launcher() walker.Launcher {
	timeout := c.Rendering.NavigationTimeout.Duration
	if c.Rendering.Engine == EngineChromedp {
		return walker.ChromedpLauncher{
			Headless:  c.Rendering.Headless,
			UserAgent: c.Crawl.UserAgent,
			Timeout:   timeout,
		}
	}
	return walker.PlaywrightLauncher{
		Headless: c.Rendering.Headless,
		Timeout:  timeout,
	}
}

// Addr returns the listen address for the API.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
