package wordweave

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"unicode/utf8"
)

// AIProvider is the interface for AI translation backends.
type AIProvider interface {
	Translate(ctx context.Context, req TranslateRequest) ([]ParsedTranslation, error)
}

// TranslateRequest contains the parameters for a provider call. Either Text
// (pick learnable terms from it) or Words (translate exactly these) is set.
type TranslateRequest struct {
	Text         string
	Words        []string
	SourceLang   string
	TargetLang   string
	LearningLang string // Language whose pronunciation goes in Phonetic
	TargetCount  int    // Number of terms the provider should aim for
	MaxCount     int    // Hard upper bound on returned terms
}

// TranslationCache is the interface for the word translation cache.
type TranslationCache interface {
	Get(word, sourceLang, targetLang string) (CacheEntry, bool)
	Put(word, sourceLang, targetLang string, entry CacheEntry)
	Entries() []CacheRecord
	Len() int
	Clear()
}

// Resolution is the two-phase answer for one text: cache hits available now
// and, when the provider is worth asking, a pending provider result.
type Resolution struct {
	Immediate []Replacement
	Deferred  *Deferred
}

// Deferred is a provider result that completes in the background.
type Deferred struct {
	done   chan struct{}
	result []Replacement
	err    error
}

func newDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Done is closed once the result is available.
func (d *Deferred) Done() <-chan struct{} {
	return d.done
}

// Result returns the replacements. It is empty until Done is closed and
// stays empty when the provider call failed.
func (d *Deferred) Result() []Replacement {
	select {
	case <-d.done:
		return d.result
	default:
		return nil
	}
}

// Err returns the provider failure, if any, after Done is closed.
func (d *Deferred) Err() error {
	select {
	case <-d.done:
		return d.err
	default:
		return nil
	}
}

// Wait blocks until the result is ready or ctx ends. Only ctx errors are
// returned; provider failures resolve to an empty result.
func (d *Deferred) Wait(ctx context.Context) ([]Replacement, error) {
	select {
	case <-d.done:
		return d.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Orchestrator resolves text into replacements, cache first and provider
// second.
type Orchestrator struct {
	mu       sync.RWMutex
	settings Settings
	cache    TranslationCache
	provider AIProvider
	logger   *slog.Logger
	stats    *Stats
}

// OrchestratorOption is a functional option for configuring the Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithCache sets the translation cache.
func WithCache(cache TranslationCache) OrchestratorOption {
	return func(o *Orchestrator) {
		o.cache = cache
	}
}

// WithProvider sets the AI provider. Without one only cached words are used.
func WithProvider(provider AIProvider) OrchestratorOption {
	return func(o *Orchestrator) {
		o.provider = provider
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithStats sets the activity counters.
func WithStats(stats *Stats) OrchestratorOption {
	return func(o *Orchestrator) {
		o.stats = stats
	}
}

// NewOrchestrator creates an Orchestrator for the given settings.
func NewOrchestrator(settings Settings, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		settings: settings,
		stats:    &Stats{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cache == nil {
		o.cache = nopCache{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", "orchestrator")
	return o
}

// Settings returns the current settings.
func (o *Orchestrator) Settings() Settings {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.settings
}

// UpdateSettings replaces the settings used by later resolutions.
func (o *Orchestrator) UpdateSettings(s Settings) {
	o.mu.Lock()
	o.settings = s
	o.mu.Unlock()
}

// AddLearned appends a learned word unless it is already known.
func (o *Orchestrator) AddLearned(w LearnedWord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, lw := range o.settings.LearnedWords {
		if strings.EqualFold(lw.Original, w.Original) {
			return
		}
	}
	learned := make([]LearnedWord, len(o.settings.LearnedWords), len(o.settings.LearnedWords)+1)
	copy(learned, o.settings.LearnedWords)
	o.settings.LearnedWords = append(learned, w)
}

// Cache returns the translation cache.
func (o *Orchestrator) Cache() TranslationCache {
	return o.cache
}

// Stats returns the activity counters.
func (o *Orchestrator) Stats() *Stats {
	return o.stats
}

// HasProvider reports whether an AI provider is configured.
func (o *Orchestrator) HasProvider() bool {
	return o.provider != nil
}

// cacheHit is a cache entry matched to its spelling in the text.
type cacheHit struct {
	word  string
	entry CacheEntry
}

// Resolve partitions the candidate terms of text into cache hits, returned
// as Immediate, and misses, sent to the provider in the background. The
// provider call is detached from ctx cancellation; stale answers are for
// the caller to discard.
func (o *Orchestrator) Resolve(ctx context.Context, text string) *Resolution {
	res := &Resolution{}
	s := o.Settings()

	src, tgt, ok := RouteLanguages(text, s)
	if !ok {
		return res
	}

	maxPer := s.MaxReplacements()
	hits, uncached := o.partition(text, src, tgt)

	learned := s.LearnedSet()
	for _, h := range hits {
		if len(res.Immediate) == maxPer {
			break
		}
		if learned[strings.ToLower(h.word)] || !h.entry.Difficulty.Meets(s.Difficulty) {
			continue
		}
		res.Immediate = append(res.Immediate, hitReplacement(text, tgt, h))
	}
	o.stats.addHits(len(res.Immediate))

	if len(uncached) == 0 {
		return res
	}
	if o.provider == nil {
		o.logger.Debug("no provider configured, using cache only", "uncached", len(uncached))
		return res
	}

	reduced := ReconstructText(text, uncached)
	if TextLength(reduced) < MinProviderText {
		return res
	}

	satisfied := len(res.Immediate) >= maxPer
	limit := maxPer - len(res.Immediate)
	target := int(math.Max(float64(limit), math.Ceil(float64(maxPer)*1.5)))
	if satisfied {
		limit, target = 1, 1
	}
	if limit <= 0 {
		return res
	}

	req := TranslateRequest{
		Text:         reduced,
		SourceLang:   src,
		TargetLang:   tgt,
		LearningLang: s.TargetLanguage,
		TargetCount:  target,
		MaxCount:     maxPer * 2,
	}

	immediate := res.Immediate
	d := newDeferred()
	res.Deferred = d
	go func() {
		defer close(d.done)
		d.result, d.err = o.augment(context.WithoutCancel(ctx), text, req, hits, immediate, limit)
	}()
	return res
}

// partition looks every candidate up in the cache and scans the cache for
// CJK entries of the same language pair the tokenizer did not produce.
func (o *Orchestrator) partition(text, src, tgt string) (hits []cacheHit, uncached []string) {
	seen := make(map[string]bool)
	for _, c := range ExtractCandidates(text) {
		entry, ok := o.cache.Get(c, src, tgt)
		if !ok {
			uncached = append(uncached, c)
			continue
		}
		lc := strings.ToLower(c)
		if !seen[lc] {
			seen[lc] = true
			hits = append(hits, cacheHit{word: c, entry: entry})
		}
	}

	for _, rec := range o.cache.Entries() {
		if rec.SourceLang != src || rec.TargetLang != tgt {
			continue
		}
		if !ContainsHan(rec.Word) || utf8.RuneCountInString(rec.Word) < MinCJKWordLen {
			continue
		}
		lw := strings.ToLower(rec.Word)
		if seen[lw] {
			continue
		}
		if i := IndexFold(text, rec.Word); i >= 0 {
			seen[lw] = true
			hits = append(hits, cacheHit{word: text[i : i+len(rec.Word)], entry: rec.Entry})
		}
	}
	return hits, uncached
}

func hitReplacement(text, lang string, h cacheHit) Replacement {
	pos := IndexFold(text, h.word)
	if pos < 0 {
		pos = 0
	}
	return Replacement{
		Original:    h.word,
		Translation: h.entry.Translation,
		Phonetic:    h.entry.Phonetic,
		Difficulty:  h.entry.Difficulty.OrDefault(),
		Position:    pos,
		Lang:        lang,
		Provenance:  FromCache,
	}
}

// augment runs the provider call, stores every acceptable answer in the
// cache and merges the answers the user should see with unused cache hits.
func (o *Orchestrator) augment(ctx context.Context, text string, req TranslateRequest, hits []cacheHit, immediate []Replacement, limit int) ([]Replacement, error) {
	items, err := o.provider.Translate(ctx, req)
	o.stats.addCall(err)
	o.stats.addMiss()
	if err != nil {
		o.logger.Warn("provider call failed", "error", err, "source", req.SourceLang, "target", req.TargetLang)
		return []Replacement{}, &TranslationError{Message: "deferred resolution failed", Cause: err}
	}

	accepted := o.store(items, req.SourceLang, req.TargetLang)

	// Settings may have changed while the call was in flight.
	s := o.Settings()
	learned := s.LearnedSet()

	var fresh []ParsedTranslation
	answered := make(map[string]bool)
	for _, p := range accepted {
		if !p.Difficulty.Meets(s.Difficulty) {
			continue
		}
		fresh = append(fresh, p)
		answered[strings.ToLower(p.Original)] = true
	}
	o.stats.addNewWords(len(fresh))

	used := make(map[string]bool, len(immediate))
	for _, r := range immediate {
		used[strings.ToLower(r.Original)] = true
	}

	merged := make([]Replacement, 0, limit)
	for _, h := range hits {
		lw := strings.ToLower(h.word)
		if used[lw] || answered[lw] || learned[lw] || !h.entry.Difficulty.Meets(s.Difficulty) {
			continue
		}
		used[lw] = true
		merged = append(merged, hitReplacement(text, req.TargetLang, h))
	}
	for _, p := range fresh {
		lw := strings.ToLower(p.Original)
		if used[lw] || learned[lw] {
			continue
		}
		used[lw] = true
		pos := IndexFold(text, p.Original)
		if pos < 0 {
			pos = max(p.Position, 0)
		}
		merged = append(merged, Replacement{
			Original:    p.Original,
			Translation: p.Translation,
			Phonetic:    p.Phonetic,
			Difficulty:  p.Difficulty.OrDefault(),
			Position:    pos,
			Lang:        req.TargetLang,
			Provenance:  FromProvider,
		})
	}

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// store writes every answer that passes the per-script length rules into the
// cache, whatever its difficulty, and returns them.
func (o *Orchestrator) store(items []ParsedTranslation, src, tgt string) []ParsedTranslation {
	accepted := make([]ParsedTranslation, 0, len(items))
	for _, p := range items {
		if !AcceptableTerm(p.Original) {
			continue
		}
		p.Difficulty = p.Difficulty.OrDefault()
		o.cache.Put(p.Original, src, tgt, CacheEntry{
			Translation: p.Translation,
			Phonetic:    p.Phonetic,
			Difficulty:  p.Difficulty,
		})
		accepted = append(accepted, p)
	}
	return accepted
}

// TranslateWords translates a list of specific words. Cached words are
// served first, the rest go to the provider, and the answer only contains
// the requested words. On a provider failure the cached part is still
// returned together with the error.
func (o *Orchestrator) TranslateWords(ctx context.Context, words []string) ([]ParsedTranslation, error) {
	words = uniqueWords(words)
	if len(words) == 0 {
		return nil, nil
	}

	s := o.Settings()
	src, tgt := LanguagePair(strings.Join(words, " "), s)

	var results []ParsedTranslation
	var uncached []string
	for _, w := range words {
		if e, ok := o.cache.Get(w, src, tgt); ok {
			results = append(results, ParsedTranslation{
				Original:    w,
				Translation: e.Translation,
				Phonetic:    e.Phonetic,
				Difficulty:  e.Difficulty.OrDefault(),
				Position:    -1,
			})
			continue
		}
		uncached = append(uncached, w)
	}
	o.stats.addHits(len(results))

	var callErr error
	switch {
	case len(uncached) == 0:
	case o.provider == nil:
		o.logger.Debug("no provider configured, using cache only", "uncached", len(uncached))
	default:
		items, err := o.provider.Translate(ctx, TranslateRequest{
			Words:        uncached,
			SourceLang:   src,
			TargetLang:   tgt,
			LearningLang: s.TargetLanguage,
			TargetCount:  len(uncached),
			MaxCount:     len(uncached),
		})
		o.stats.addCall(err)
		o.stats.addMiss()
		if err != nil {
			o.logger.Warn("provider call failed for word list", "error", err, "words", len(uncached))
			callErr = &TranslationError{Message: "word translation failed", Cause: err}
			break
		}
		accepted := o.store(items, src, tgt)
		o.stats.addNewWords(len(accepted))
		results = append(results, accepted...)
	}

	requested := make(map[string]bool, len(words))
	for _, w := range words {
		requested[strings.ToLower(w)] = true
	}
	filtered := results[:0]
	for _, r := range results {
		if requested[strings.ToLower(r.Original)] {
			filtered = append(filtered, r)
		}
	}
	return filtered, callErr
}

// LanguagePair returns the translation direction for text regardless of the
// process mode: native text goes to the learning language, anything else to
// the native language.
func LanguagePair(text string, s Settings) (source, target string) {
	detected := DetectLanguage(text)
	if IsNativeLanguage(detected, s.NativeLanguage) {
		return s.NativeLanguage, s.TargetLanguage
	}
	return detected, s.NativeLanguage
}

func uniqueWords(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		lw := strings.ToLower(w)
		if w == "" || seen[lw] {
			continue
		}
		seen[lw] = true
		out = append(out, w)
	}
	return out
}

// nopCache is used when no cache is configured: every lookup misses.
type nopCache struct{}

func (nopCache) Get(string, string, string) (CacheEntry, bool) { return CacheEntry{}, false }
func (nopCache) Put(string, string, string, CacheEntry)        {}
func (nopCache) Entries() []CacheRecord                        { return nil }
func (nopCache) Len() int                                      { return 0 }
func (nopCache) Clear()                                        {}
