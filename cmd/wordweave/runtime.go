package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZaguanLabs/wordweave"
	"github.com/ZaguanLabs/wordweave/cache"
	"github.com/ZaguanLabs/wordweave/config"
	"github.com/ZaguanLabs/wordweave/provider"
	"github.com/ZaguanLabs/wordweave/scheduler"
)

// runtime holds what a command needs to resolve words: the configuration,
// the persisted cache and an orchestrator built on them.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
	cache  *cache.LRUCache
	orch   *wordweave.Orchestrator

	closeStore func() error
}

func loadConfig(f *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(f.cfgFile)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	return cfg, nil
}

// openRuntime loads the configuration and the cache snapshot. With
// cacheOnly set, or without an API key, no provider is configured.
func openRuntime(ctx context.Context, f *globalFlags, stderr io.Writer, cacheOnly bool) (*runtime, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(stderr, cfg.Log)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(cfg.Cache)
	if err != nil {
		return nil, &wordweave.CacheError{Message: "opening store", Store: cfg.Cache.Store, Cause: err}
	}
	cacheOpts := []cache.Option{cache.WithFlushDelay(cfg.Cache.FlushDelay), cache.WithLogger(logger)}
	if store != nil {
		cacheOpts = append(cacheOpts, cache.WithStore(store))
	}
	c := cache.NewLRUCache(cfg.Cache.Capacity, cacheOpts...)
	if err := c.Load(ctx); err != nil {
		closeStore()
		return nil, err
	}

	opts := []wordweave.OrchestratorOption{wordweave.WithCache(c), wordweave.WithLogger(logger)}
	if !cacheOnly {
		if p := buildProvider(cfg, logger); p != nil {
			opts = append(opts, wordweave.WithProvider(p))
		}
	}

	return &runtime{
		cfg:        cfg,
		logger:     logger,
		cache:      c,
		orch:       wordweave.NewOrchestrator(cfg.Settings(), opts...),
		closeStore: closeStore,
	}, nil
}

// Close flushes the cache and releases the store.
func (r *runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.cache.Close(ctx); err != nil {
		r.logger.Error("saving cache failed", "error", err)
	}
	if err := r.closeStore(); err != nil {
		r.logger.Warn("closing cache store failed", "error", err)
	}
}

func (r *runtime) schedulerOptions() []scheduler.Option {
	sc := r.cfg.Scheduler
	return []scheduler.Option{
		scheduler.WithLogger(r.logger),
		scheduler.WithBatchSize(sc.BatchSize),
		scheduler.WithBatchDelay(sc.BatchDelay),
		scheduler.WithDrainDelay(sc.DrainDelay),
		scheduler.WithMaxSegments(sc.MaxSegments),
	}
}

func noClose() error { return nil }

func openStore(cfg config.CacheConfig) (cache.Store, func() error, error) {
	switch cfg.Store {
	case config.StoreFile:
		return cache.NewFileStore(cfg.Path), noClose, nil
	case config.StoreRedis:
		s, err := cache.NewRedisStore(cache.RedisConfig{URL: cfg.RedisURL, Key: cfg.RedisKey})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StoreSQLite:
		path := cfg.Path
		if filepath.Ext(path) == ".json" {
			path = strings.TrimSuffix(path, ".json") + ".db"
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, err
		}
		s, err := cache.OpenSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, noClose, nil
	}
}

// buildProvider stacks rate limiting, retries and a circuit breaker on the
// OpenAI-compatible client. It returns nil when no API key is available.
func buildProvider(cfg *config.Config, logger *slog.Logger) wordweave.AIProvider {
	key, source := cfg.APIKey()
	if key == "" {
		logger.Info("no API key configured, using cached words only")
		return nil
	}
	logger.Debug("provider configured", "model", cfg.Provider.Model, "key_source", source)

	pc := cfg.Provider
	var p wordweave.AIProvider = provider.NewOpenAIProvider(provider.OpenAIConfig{
		APIKey:      key,
		Model:       pc.Model,
		Temperature: pc.Temperature,
		BaseURL:     pc.Endpoint,
		MaxTokens:   pc.MaxTokens,
		JSONMode:    pc.JSONMode,
	})
	p = wordweave.NewRateLimitedProvider(p, wordweave.RateLimitConfig{RequestsPerMinute: pc.RequestsPerMinute})

	retry := wordweave.DefaultRetryConfig()
	retry.MaxRetries = pc.MaxRetries
	p = wordweave.NewRetryableProvider(p, retry, logger)

	return provider.NewBreakerProvider(p, provider.BreakerConfig{
		MaxFailures: uint32(max(pc.Breaker.MaxFailures, 0)),
		OpenTimeout: pc.Breaker.OpenTimeout,
	}, logger)
}

// newLogger builds the slog handler selected by the log section. Secrets
// never reach the output.
func newLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, &wordweave.ConfigError{Field: "log.level", Message: fmt.Sprintf("unknown level %q", cfg.Level)}
	}
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: redactAttr}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

var sensitiveKeys = []string{"api_key", "apikey", "token", "secret", "password", "authorization"}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return slog.String(a.Key, "[REDACTED]")
		}
	}
	if a.Value.Kind() == slog.KindString && strings.HasPrefix(a.Value.String(), "sk-") {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}
