package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZaguanLabs/wordweave"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wordweave.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.File != "" {
		t.Errorf("no config file should be used, got %q", cfg.File)
	}

	s := cfg.Settings()
	d := wordweave.DefaultSettings()
	if s.NativeLanguage != d.NativeLanguage || s.TargetLanguage != d.TargetLanguage || s.Difficulty != d.Difficulty ||
		s.Intensity != d.Intensity || s.Style != d.Style || !s.Enabled {
		t.Errorf("settings = %+v, want defaults", s)
	}
	if cfg.Cache.Store != StoreFile || cfg.Cache.Capacity != 2000 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Scheduler.BatchSize != 3 || cfg.Scheduler.BatchDelay != 50*time.Millisecond ||
		cfg.Scheduler.DrainDelay != 100*time.Millisecond || cfg.Scheduler.MaxSegments != 20 {
		t.Errorf("scheduler = %+v", cfg.Scheduler)
	}
	if cfg.Provider.Breaker.MaxFailures != 5 || cfg.Provider.Breaker.OpenTimeout != 30*time.Second {
		t.Errorf("breaker = %+v", cfg.Provider.Breaker)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
native_language: ja
target_language: en
difficulty: b2
intensity: high
style: translation-only
excluded_sites: [mail.example.com]
learned_words:
  - original: photosynthesis
    word: 光合作用
    difficulty: B2
memorize_list: [ephemeral]
provider:
  model: deepseek-chat
  endpoint: https://api.deepseek.com/v1
  json_mode: true
cache:
  store: sqlite
  path: /tmp/wordweave.db
scheduler:
  drain_delay: 250ms
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}

	s := cfg.Settings()
	if s.NativeLanguage != "ja" || s.Difficulty != wordweave.B2 || s.Intensity != wordweave.IntensityHigh ||
		s.Style != wordweave.StyleTranslationOnly {
		t.Errorf("settings = %+v", s)
	}
	if len(s.ExcludedSites) != 1 || s.ExcludedSites[0] != "mail.example.com" {
		t.Errorf("excluded sites = %v", s.ExcludedSites)
	}
	if len(s.LearnedWords) != 1 || s.LearnedWords[0].Original != "photosynthesis" || s.LearnedWords[0].Difficulty != wordweave.B2 {
		t.Errorf("learned words = %+v", s.LearnedWords)
	}
	if len(s.MemorizeList) != 1 || s.MemorizeList[0] != "ephemeral" {
		t.Errorf("memorize list = %v", s.MemorizeList)
	}
	if cfg.Provider.Model != "deepseek-chat" || !cfg.Provider.JSONMode || cfg.Provider.MaxRetries != 3 {
		t.Errorf("provider = %+v", cfg.Provider)
	}
	if cfg.Cache.Store != StoreSQLite || cfg.Scheduler.DrainDelay != 250*time.Millisecond {
		t.Errorf("cache = %+v, scheduler = %+v", cfg.Cache, cfg.Scheduler)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "cache:\n  store: file\n")
	t.Setenv("WORDWEAVE_CACHE_STORE", "redis")
	t.Setenv("WORDWEAVE_INTENSITY", "low")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cache.Store != StoreRedis {
		t.Errorf("cache store = %q, want redis", cfg.Cache.Store)
	}
	if cfg.Intensity != "low" {
		t.Errorf("intensity = %q, want low", cfg.Intensity)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("an explicit missing file should be an error")
	}

	tests := []struct {
		content string
		field   string
	}{
		{"intensity: extreme\n", "intensity"},
		{"difficulty: D9\n", "difficulty"},
		{"cache:\n  store: postgres\n", "cache.store"},
		{"cache:\n  capacity: 0\n", "cache.capacity"},
	}
	for _, tt := range tests {
		_, err := Load(writeConfig(t, tt.content))
		var cfgErr *wordweave.ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Field != tt.field {
			t.Errorf("%q: expected ConfigError on %s, got %v", tt.content, tt.field, err)
		}
	}
}

func TestAPIKey(t *testing.T) {
	keyring.MockInit()
	t.Setenv("OPENAI_API_KEY", "")

	cfg := &Config{}
	if key, src := cfg.APIKey(); key != "" || src != "" {
		t.Errorf("no key expected, got %q from %q", key, src)
	}

	t.Setenv("OPENAI_API_KEY", " sk-env ")
	if key, src := cfg.APIKey(); key != "sk-env" || src != SourceEnv {
		t.Errorf("got %q from %q, want environment key", key, src)
	}

	if err := SaveAPIKey("sk-keychain"); err != nil {
		t.Fatalf("SaveAPIKey failed: %v", err)
	}
	if key, src := cfg.APIKey(); key != "sk-keychain" || src != SourceKeychain {
		t.Errorf("got %q from %q, want keychain key", key, src)
	}

	cfg.Provider.APIKey = "sk-config"
	if key, src := cfg.APIKey(); key != "sk-config" || src != SourceConfig {
		t.Errorf("got %q from %q, want config key", key, src)
	}

	if err := DeleteAPIKey(); err != nil {
		t.Fatalf("DeleteAPIKey failed: %v", err)
	}
}

func TestAddLearnedWord(t *testing.T) {
	path := writeConfig(t, "native_language: zh-CN\nlearned_words:\n  - original: apple\n    word: 苹果\n")

	added, err := AddLearnedWord(path, wordweave.LearnedWord{Original: "Photosynthesis", Word: "光合作用", Difficulty: wordweave.B2, AddedAt: 1700000000})
	if err != nil || !added {
		t.Fatalf("AddLearnedWord = %v, %v", added, err)
	}
	if added, _ := AddLearnedWord(path, wordweave.LearnedWord{Original: "APPLE"}); added {
		t.Error("existing words should not be added twice")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		NativeLanguage string                  `yaml:"native_language"`
		LearnedWords   []wordweave.LearnedWord `yaml:"learned_words"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.NativeLanguage != "zh-CN" {
		t.Error("other keys must be kept")
	}
	if len(doc.LearnedWords) != 2 || doc.LearnedWords[1].Original != "Photosynthesis" || doc.LearnedWords[1].AddedAt != 1700000000 {
		t.Errorf("learned words = %+v", doc.LearnedWords)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("written file should load: %v", err)
	}
	if len(cfg.LearnedWords) != 2 {
		t.Errorf("loaded learned words = %+v", cfg.LearnedWords)
	}
}

func TestAddLearnedWord_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wordweave.yaml")
	if _, err := AddLearnedWord(path, wordweave.LearnedWord{Original: "ephemeral"}); err != nil {
		t.Fatalf("AddLearnedWord failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(data), "ephemeral") {
		t.Errorf("file = %q, %v", data, err)
	}
}

func TestLearnedFile(t *testing.T) {
	cfg := &Config{File: "/etc/wordweave.yaml"}
	if cfg.LearnedFile() != "/etc/wordweave.yaml" {
		t.Errorf("LearnedFile = %q", cfg.LearnedFile())
	}

	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg.File = ""
	if want := filepath.Join(home, ".wordweave.yaml"); cfg.LearnedFile() != want {
		t.Errorf("LearnedFile = %q, want %q", cfg.LearnedFile(), want)
	}
}
