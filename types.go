package wordweave

import (
	"strings"

	"golang.org/x/net/html"
)

// Provenance tells where a replacement came from.
type Provenance string

const (
	// FromCache marks replacements resolved from the local cache.
	FromCache Provenance = "cache"
	// FromProvider marks replacements resolved by the AI provider.
	FromProvider Provenance = "provider"
)

// ProcessMode selects which pages get processed.
type ProcessMode string

const (
	// ModeNativeOnly processes text written in the native language.
	ModeNativeOnly ProcessMode = "native-only"
	// ModeTargetOnly processes text written in the learning language.
	ModeTargetOnly ProcessMode = "target-only"
	// ModeBoth processes both directions.
	ModeBoth ProcessMode = "both"
)

// Intensity controls how many words are replaced per region.
type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// MaxPerRegion returns the replacement quota for the intensity.
func (i Intensity) MaxPerRegion() int {
	switch i {
	case IntensityLow:
		return 4
	case IntensityHigh:
		return 14
	default:
		return 8
	}
}

// TranslationStyle controls how a substitution node renders.
type TranslationStyle string

const (
	// StyleTranslationOriginal renders "translation(original)".
	StyleTranslationOriginal TranslationStyle = "translation-original"
	// StyleOriginalTranslation renders "original(translation)".
	StyleOriginalTranslation TranslationStyle = "original-translation"
	// StyleTranslationOnly renders only the translation.
	StyleTranslationOnly TranslationStyle = "translation-only"
)

// SiteMode selects how site rules are interpreted.
type SiteMode string

const (
	// SiteModeAll processes every site except excluded ones.
	SiteModeAll SiteMode = "all"
	// SiteModeSelected processes only allowed sites.
	SiteModeSelected SiteMode = "selected"
)

// CacheEntry is the cached value for a (word, source, target) key.
type CacheEntry struct {
	Translation string
	Phonetic    string
	Difficulty  Difficulty
}

// CacheRecord is a cache entry together with the parts of its key.
type CacheRecord struct {
	Key        string
	Word       string
	SourceLang string
	TargetLang string
	Entry      CacheEntry
}

// Replacement is one substitution candidate for a segment.
type Replacement struct {
	Original    string
	Translation string
	Phonetic    string
	Difficulty  Difficulty
	Position    int    // Byte offset in the segment text at resolution time
	Lang        string // Language of Translation
	Provenance  Provenance
}

// ParsedTranslation is one validated entry of a provider response.
type ParsedTranslation struct {
	Original    string     `json:"original"`
	Translation string     `json:"translation"`
	Phonetic    string     `json:"phonetic"`
	Difficulty  Difficulty `json:"difficulty"`
	Position    int        `json:"position"`
}

// Segment is one candidate text region of a document.
type Segment struct {
	Node        *html.Node // Container element
	Text        string     // Extracted text, truncated
	Fingerprint string     // Content + structural path hash
	Path        string     // Structural path of the container
}

// LearnedWord is a word the user already knows.
type LearnedWord struct {
	Original   string     `json:"original" yaml:"original" mapstructure:"original"`
	Word       string     `json:"word" yaml:"word" mapstructure:"word"`
	AddedAt    int64      `json:"added_at" yaml:"added_at" mapstructure:"added_at"`
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty" mapstructure:"difficulty"`
}

// Settings holds the user preferences consumed by the engine.
type Settings struct {
	NativeLanguage string
	TargetLanguage string
	Difficulty     Difficulty
	Intensity      Intensity
	ProcessMode    ProcessMode
	Style          TranslationStyle
	Enabled        bool
	AutoProcess    bool
	SiteMode       SiteMode
	ExcludedSites  []string
	AllowedSites   []string
	LearnedWords   []LearnedWord
	MemorizeList   []string
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		NativeLanguage: "zh-CN",
		TargetLanguage: "en",
		Difficulty:     B1,
		Intensity:      IntensityMedium,
		ProcessMode:    ModeBoth,
		Style:          StyleTranslationOriginal,
		Enabled:        true,
		SiteMode:       SiteModeAll,
	}
}

// MaxReplacements returns the per-region replacement quota.
func (s Settings) MaxReplacements() int {
	return s.Intensity.MaxPerRegion()
}

// LearnedSet returns the learned words, lowercased.
func (s Settings) LearnedSet() map[string]bool {
	set := make(map[string]bool, len(s.LearnedWords))
	for _, w := range s.LearnedWords {
		if w.Original != "" {
			set[strings.ToLower(w.Original)] = true
		}
	}
	return set
}

// SiteAllowed reports whether pages on host should be processed.
func (s Settings) SiteAllowed(host string) bool {
	if s.SiteMode == SiteModeSelected {
		for _, d := range s.AllowedSites {
			if d != "" && strings.Contains(host, d) {
				return true
			}
		}
		return false
	}
	for _, d := range s.ExcludedSites {
		if d != "" && strings.Contains(host, d) {
			return false
		}
	}
	return true
}

// Document markers shared by the processor and the scheduler.
const (
	ClassTranslated = "wordweave-translated"
	ClassWord       = "wordweave-word"
	ClassOriginal   = "wordweave-original"
	AttrProcessed   = "data-wordweave-processed"
	AttrObserving   = "data-wordweave-observing"
	AttrOriginal    = "data-original"
	AttrTranslation = "data-translation"
	AttrPhonetic    = "data-phonetic"
	AttrDifficulty  = "data-difficulty"
	AttrSource      = "data-source"
)

// IgnoredTags contains HTML tags whose content is never scanned.
var IgnoredTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"code":     true,
	"pre":      true,
	"kbd":      true,
	"textarea": true,
	"input":    true,
	"select":   true,
	"button":   true,
}

// SkipClasses contains class names that exclude an element from scanning.
var SkipClasses = []string{
	ClassTranslated,
	"wordweave-tooltip",
	"hljs",
	"code",
	"syntax",
}

// BlockTags contains the elements that can act as segment containers.
var BlockTags = map[string]bool{
	"p":          true,
	"div":        true,
	"article":    true,
	"section":    true,
	"li":         true,
	"td":         true,
	"th":         true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
	"span":       true,
	"blockquote": true,
}
