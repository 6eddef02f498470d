package config

import (
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "wordweave"
	keyringAccount = "api-key"
	apiKeyEnvVar   = "OPENAI_API_KEY"
)

// Key sources reported by APIKey.
const (
	SourceConfig   = "config"
	SourceKeychain = "keychain"
	SourceEnv      = "environment"
)

// APIKey returns the provider API key and where it came from: the config
// (including WORDWEAVE_PROVIDER_API_KEY), then the OS keychain, then
// OPENAI_API_KEY. Both are empty when no key is found.
func (c *Config) APIKey() (key, source string) {
	if k := strings.TrimSpace(c.Provider.APIKey); k != "" {
		return k, SourceConfig
	}
	if k, err := keyring.Get(keyringService, keyringAccount); err == nil && strings.TrimSpace(k) != "" {
		return strings.TrimSpace(k), SourceKeychain
	}
	if k := strings.TrimSpace(os.Getenv(apiKeyEnvVar)); k != "" {
		return k, SourceEnv
	}
	return "", ""
}

// SaveAPIKey stores the key in the OS keychain.
func SaveAPIKey(key string) error {
	return keyring.Set(keyringService, keyringAccount, strings.TrimSpace(key))
}

// DeleteAPIKey removes the key from the OS keychain.
func DeleteAPIKey() error {
	return keyring.Delete(keyringService, keyringAccount)
}
