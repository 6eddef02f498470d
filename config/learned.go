package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZaguanLabs/wordweave"
	"gopkg.in/yaml.v3"
)

// AddLearnedWord appends w to the learned_words list of the YAML file at
// path, creating the file when needed. Other keys are kept. It reports
// false when the word was already listed.
func AddLearnedWord(path string, w wordweave.LearnedWord) (bool, error) {
	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return false, fmt.Errorf("reading %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return false, fmt.Errorf("parsing %s: %w", path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	}

	var learned []wordweave.LearnedWord
	if raw, ok := doc["learned_words"]; ok {
		// Round-trip through YAML to decode the generic value.
		b, err := yaml.Marshal(raw)
		if err != nil {
			return false, err
		}
		if err := yaml.Unmarshal(b, &learned); err != nil {
			return false, fmt.Errorf("parsing learned_words: %w", err)
		}
	}
	for _, lw := range learned {
		if strings.EqualFold(lw.Original, w.Original) {
			return false, nil
		}
	}
	doc["learned_words"] = append(learned, w)

	out, err := yaml.Marshal(doc)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}

// LearnedFile returns the file AddLearnedWord should write: the loaded
// config file, or .wordweave.yaml in the home directory.
func (c *Config) LearnedFile() string {
	if c.File != "" {
		return c.File
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName + ".yaml"
	}
	return filepath.Join(home, DefaultFileName+".yaml")
}
