// Package config loads wordweave settings from a YAML file, WORDWEAVE_*
// environment variables and defaults, in increasing order of precedence
// for the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZaguanLabs/wordweave"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. WORDWEAVE_CACHE_STORE.
const EnvPrefix = "WORDWEAVE"

// DefaultFileName is looked up in the home and working directories.
const DefaultFileName = ".wordweave"

// Cache stores.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config is the complete wordweave configuration.
type Config struct {
	NativeLanguage string                  `mapstructure:"native_language" yaml:"native_language"`
	TargetLanguage string                  `mapstructure:"target_language" yaml:"target_language"`
	Difficulty     string                  `mapstructure:"difficulty" yaml:"difficulty"`
	Intensity      string                  `mapstructure:"intensity" yaml:"intensity"`
	ProcessMode    string                  `mapstructure:"process_mode" yaml:"process_mode"`
	Style          string                  `mapstructure:"style" yaml:"style"`
	Enabled        bool                    `mapstructure:"enabled" yaml:"enabled"`
	AutoProcess    bool                    `mapstructure:"auto_process" yaml:"auto_process"`
	SiteMode       string                  `mapstructure:"site_mode" yaml:"site_mode"`
	ExcludedSites  []string                `mapstructure:"excluded_sites" yaml:"excluded_sites"`
	AllowedSites   []string                `mapstructure:"allowed_sites" yaml:"allowed_sites"`
	LearnedWords   []wordweave.LearnedWord `mapstructure:"learned_words" yaml:"learned_words"`
	MemorizeList   []string                `mapstructure:"memorize_list" yaml:"memorize_list"`

	Provider  ProviderConfig  `mapstructure:"provider" yaml:"provider"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" yaml:"-"`
}

// ProviderConfig configures the AI provider and its decorators.
type ProviderConfig struct {
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"`
	Temperature       float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	JSONMode          bool          `mapstructure:"json_mode" yaml:"json_mode"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Breaker           BreakerConfig `mapstructure:"breaker" yaml:"breaker"`
}

// BreakerConfig configures the provider circuit breaker.
type BreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures" yaml:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" yaml:"open_timeout"`
}

// CacheConfig selects and tunes the translation cache.
type CacheConfig struct {
	Store      string        `mapstructure:"store" yaml:"store"`
	Capacity   int           `mapstructure:"capacity" yaml:"capacity"`
	Path       string        `mapstructure:"path" yaml:"path"`
	RedisURL   string        `mapstructure:"redis_url" yaml:"redis_url"`
	RedisKey   string        `mapstructure:"redis_key" yaml:"redis_key"`
	FlushDelay time.Duration `mapstructure:"flush_delay" yaml:"flush_delay"`
}

// SchedulerConfig tunes region batching and the viewport.
type SchedulerConfig struct {
	BatchSize      int           `mapstructure:"batch_size" yaml:"batch_size"`
	BatchDelay     time.Duration `mapstructure:"batch_delay" yaml:"batch_delay"`
	DrainDelay     time.Duration `mapstructure:"drain_delay" yaml:"drain_delay"`
	MaxSegments    int           `mapstructure:"max_segments" yaml:"max_segments"`
	Margin         float64       `mapstructure:"margin" yaml:"margin"`
	ViewportHeight float64       `mapstructure:"viewport_height" yaml:"viewport_height"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug | info | warn | error
	Format string `mapstructure:"format" yaml:"format"` // text | json
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

func setDefaults(v *viper.Viper) {
	d := wordweave.DefaultSettings()
	v.SetDefault("native_language", d.NativeLanguage)
	v.SetDefault("target_language", d.TargetLanguage)
	v.SetDefault("difficulty", string(d.Difficulty))
	v.SetDefault("intensity", string(d.Intensity))
	v.SetDefault("process_mode", string(d.ProcessMode))
	v.SetDefault("style", string(d.Style))
	v.SetDefault("enabled", d.Enabled)
	v.SetDefault("auto_process", d.AutoProcess)
	v.SetDefault("site_mode", string(d.SiteMode))
	v.SetDefault("excluded_sites", []string{})
	v.SetDefault("allowed_sites", []string{})
	v.SetDefault("memorize_list", []string{})

	v.SetDefault("provider.endpoint", "https://api.openai.com/v1")
	v.SetDefault("provider.model", "gpt-4o-mini")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.temperature", 0.3)
	v.SetDefault("provider.max_tokens", 0)
	v.SetDefault("provider.json_mode", false)
	v.SetDefault("provider.requests_per_minute", 60)
	v.SetDefault("provider.max_retries", 3)
	v.SetDefault("provider.timeout", 60*time.Second)
	v.SetDefault("provider.breaker.max_failures", 5)
	v.SetDefault("provider.breaker.open_timeout", 30*time.Second)

	v.SetDefault("cache.store", StoreFile)
	v.SetDefault("cache.capacity", 2000)
	v.SetDefault("cache.path", defaultCachePath())
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.redis_key", "wordweave:cache")
	v.SetDefault("cache.flush_delay", time.Second)

	v.SetDefault("scheduler.batch_size", 3)
	v.SetDefault("scheduler.batch_delay", 50*time.Millisecond)
	v.SetDefault("scheduler.drain_delay", 100*time.Millisecond)
	v.SetDefault("scheduler.max_segments", 20)
	v.SetDefault("scheduler.margin", 500.0)
	v.SetDefault("scheduler.viewport_height", 900.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.max_body_bytes", 4<<20)
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "wordweave-cache.json"
	}
	return filepath.Join(dir, "wordweave", "cache.json")
}

// Load reads the configuration. An explicit path must exist; otherwise
// .wordweave.yaml is looked up in the home and working directories and a
// missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(DefaultFileName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	if _, ok := wordweave.ParseDifficulty(c.Difficulty); !ok {
		return &wordweave.ConfigError{Field: "difficulty", Message: fmt.Sprintf("unknown level %q", c.Difficulty)}
	}
	checks := []struct {
		field string
		value string
		allow []string
	}{
		{"intensity", c.Intensity, []string{"low", "medium", "high"}},
		{"process_mode", c.ProcessMode, []string{"native-only", "target-only", "both"}},
		{"style", c.Style, []string{"translation-original", "original-translation", "translation-only"}},
		{"site_mode", c.SiteMode, []string{"all", "selected"}},
		{"cache.store", c.Cache.Store, []string{StoreMemory, StoreFile, StoreRedis, StoreSQLite}},
		{"log.format", c.Log.Format, []string{"text", "json"}},
	}
	for _, ch := range checks {
		if !contains(ch.allow, ch.value) {
			return &wordweave.ConfigError{
				Field:   ch.field,
				Message: fmt.Sprintf("%q is not one of %s", ch.value, strings.Join(ch.allow, ", ")),
			}
		}
	}
	if c.NativeLanguage == "" || c.TargetLanguage == "" {
		return &wordweave.ConfigError{Field: "native_language", Message: "both languages are required"}
	}
	if c.Cache.Capacity <= 0 {
		return &wordweave.ConfigError{Field: "cache.capacity", Message: "must be positive"}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Settings converts the user section into engine settings.
func (c *Config) Settings() wordweave.Settings {
	d, _ := wordweave.ParseDifficulty(c.Difficulty)
	return wordweave.Settings{
		NativeLanguage: c.NativeLanguage,
		TargetLanguage: c.TargetLanguage,
		Difficulty:     d,
		Intensity:      wordweave.Intensity(c.Intensity),
		ProcessMode:    wordweave.ProcessMode(c.ProcessMode),
		Style:          wordweave.TranslationStyle(c.Style),
		Enabled:        c.Enabled,
		AutoProcess:    c.AutoProcess,
		SiteMode:       wordweave.SiteMode(c.SiteMode),
		ExcludedSites:  c.ExcludedSites,
		AllowedSites:   c.AllowedSites,
		LearnedWords:   c.LearnedWords,
		MemorizeList:   c.MemorizeList,
	}
}
