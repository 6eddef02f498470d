package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ZaguanLabs/wordweave"
	"github.com/sony/gobreaker"
)

// BreakerConfig configures BreakerProvider.
type BreakerConfig struct {
	// Name labels the breaker in logs.
	Name string
	// MaxFailures is the number of consecutive failures that opens the
	// breaker (default: 5).
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing
	// (default: 30s).
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probe calls let through while
	// half-open (default: 1).
	HalfOpenRequests uint32
}

// DefaultBreakerConfig returns the default breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "provider",
		MaxFailures:      5,
		OpenTimeout:      30 * time.Second,
		HalfOpenRequests: 1,
	}
}

// BreakerProvider stops calling an unhealthy provider for a while. Calls
// made while the breaker is open fail fast with a non-retryable
// ProviderError; the deferred result of such a region is simply empty.
type BreakerProvider struct {
	provider AIProvider
	cb       *gobreaker.CircuitBreaker
}

// NewBreakerProvider wraps a provider with a circuit breaker.
func NewBreakerProvider(provider AIProvider, cfg BreakerConfig, logger *slog.Logger) *BreakerProvider {
	def := DefaultBreakerConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = def.HalfOpenRequests
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "breaker")

	maxFailures := cfg.MaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		// A cancelled caller says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerProvider{provider: provider, cb: cb}
}

// Translate calls the wrapped provider unless the breaker is open.
func (p *BreakerProvider) Translate(ctx context.Context, req TranslateRequest) ([]ParsedTranslation, error) {
	out, err := p.cb.Execute(func() (interface{}, error) {
		return p.provider.Translate(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &wordweave.ProviderError{
			Message:   "provider temporarily disabled",
			Cause:     err,
			Retryable: false,
		}
	}
	if err != nil {
		return nil, err
	}
	items, _ := out.([]ParsedTranslation)
	return items, nil
}

// State returns the breaker state: "closed", "half-open" or "open".
func (p *BreakerProvider) State() string {
	return p.cb.State().String()
}

var _ AIProvider = (*BreakerProvider)(nil)
