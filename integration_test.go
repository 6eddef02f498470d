package wordweave_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ZaguanLabs/wordweave"
	"github.com/ZaguanLabs/wordweave/cache"
	"github.com/ZaguanLabs/wordweave/processor"
	"github.com/ZaguanLabs/wordweave/provider"
	"github.com/ZaguanLabs/wordweave/scheduler"
)

// Integration tests wiring the real cache, processor and scheduler to a
// mock provider.

const biology = `<article>
<h1>Cells</h1>
<p id="intro">Photosynthesis is a complex process that turns light into chemical energy inside the leaf.</p>
<pre>energy := light * efficiency // code is never touched</pre>
<p contenteditable="true">This editable paragraph mentions energy and a complex process as well.</p>
<p class="hljs">Highlighted paragraph about energy that must stay exactly as written.</p>
<script>var energy = "complex process";</script>
</article>`

func annotate(t *testing.T, o *wordweave.Orchestrator, content string) (*processor.Document, *scheduler.Scheduler) {
	t.Helper()
	doc, err := processor.ParseHTML(content)
	if err != nil {
		t.Fatalf("ParseHTML failed: %v", err)
	}
	s := scheduler.New(doc, o,
		scheduler.WithViewport(processor.Viewport{Height: 1e9}),
		scheduler.WithDrainDelay(time.Millisecond),
		scheduler.WithBatchDelay(0))
	t.Cleanup(s.Close)

	s.ProcessPage(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	return doc, s
}

func originals(s *scheduler.Scheduler) map[string]wordweave.Provenance {
	out := map[string]wordweave.Provenance{}
	for _, r := range s.Substitutions() {
		out[strings.ToLower(r.Original)] = r.Provenance
	}
	return out
}

func TestIntegration_ProviderThenCache(t *testing.T) {
	p := provider.NewMockProvider()
	c := cache.NewLRUCache(100)
	o := wordweave.NewOrchestrator(wordweave.DefaultSettings(), wordweave.WithProvider(p), wordweave.WithCache(c))

	_, s := annotate(t, o, biology)
	got := originals(s)
	for _, w := range []string{"photosynthesis", "complex", "chemical", "process"} {
		if got[w] != wordweave.FromProvider {
			t.Errorf("%s: provenance %q, want provider (all: %v)", w, got[w], got)
		}
	}
	if _, ok := got["energy"]; ok {
		t.Error("energy is A2 and below the B1 level, it should not be substituted")
	}
	if p.CallCount() != 1 {
		t.Errorf("expected 1 provider call, got %d", p.CallCount())
	}
	// Every answer is cached, whatever its level.
	if _, ok := c.Get("energy", "en", "zh-CN"); !ok {
		t.Error("energy should be cached")
	}

	// A second page view is served from the cache alone.
	p.Reset()
	_, s2 := annotate(t, o, biology)
	for w, prov := range originals(s2) {
		if prov != wordweave.FromCache {
			t.Errorf("%s: provenance %q on second view, want cache", w, prov)
		}
	}
	if len(s2.Substitutions()) != len(s.Substitutions()) {
		t.Errorf("second view applied %d, first %d", len(s2.Substitutions()), len(s.Substitutions()))
	}
}

func TestIntegration_ExcludedRegions(t *testing.T) {
	p := provider.NewMockProvider()
	o := wordweave.NewOrchestrator(wordweave.DefaultSettings(), wordweave.WithProvider(p), wordweave.WithCache(cache.NewLRUCache(100)))

	doc, _ := annotate(t, o, biology)
	out, err := doc.HTML()
	if err != nil {
		t.Fatal(err)
	}
	for _, kept := range []string{
		`<pre>energy := light * efficiency // code is never touched</pre>`,
		`<p contenteditable="true">This editable paragraph mentions energy and a complex process as well.</p>`,
		`<p class="hljs">Highlighted paragraph about energy that must stay exactly as written.</p>`,
		`<script>var energy = "complex process";</script>`,
	} {
		if !strings.Contains(out, kept) {
			t.Errorf("excluded region was modified, missing %s", kept)
		}
	}
	if req, ok := p.LastRequest(); ok && strings.Contains(req.Text, "editable") {
		t.Errorf("excluded text reached the provider: %q", req.Text)
	}
}

func TestIntegration_Restore(t *testing.T) {
	o := wordweave.NewOrchestrator(wordweave.DefaultSettings(),
		wordweave.WithProvider(provider.NewMockProvider()), wordweave.WithCache(cache.NewLRUCache(100)))

	doc, s := annotate(t, o, biology)
	if len(s.Substitutions()) == 0 {
		t.Fatal("expected substitutions")
	}
	s.RestoreAll()

	out, _ := doc.HTML()
	if out != biology {
		t.Errorf("restore mismatch:\n got %s\nwant %s", out, biology)
	}
}

func TestIntegration_PersistentCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	ctx := context.Background()

	c := cache.NewLRUCache(100, cache.WithStore(cache.NewFileStore(path)), cache.WithFlushDelay(time.Hour))
	o := wordweave.NewOrchestrator(wordweave.DefaultSettings(),
		wordweave.WithProvider(provider.NewMockProvider()), wordweave.WithCache(c))
	annotate(t, o, biology)
	if err := c.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// A new process starts from the snapshot and never calls the provider.
	restarted := cache.NewLRUCache(100, cache.WithStore(cache.NewFileStore(path)))
	if err := restarted.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if restarted.Len() != c.Len() {
		t.Errorf("loaded %d entries, saved %d", restarted.Len(), c.Len())
	}

	p := provider.NewMockProvider()
	p.Err = &wordweave.ProviderError{Message: "must not be called"}
	o2 := wordweave.NewOrchestrator(wordweave.DefaultSettings(), wordweave.WithProvider(p), wordweave.WithCache(restarted))
	_, s := annotate(t, o2, biology)
	if got := originals(s); got["photosynthesis"] != wordweave.FromCache {
		t.Errorf("photosynthesis should come from the snapshot, got %v", got)
	}
}

func TestIntegration_LearnedWords(t *testing.T) {
	settings := wordweave.DefaultSettings()
	settings.LearnedWords = []wordweave.LearnedWord{{Original: "Photosynthesis"}}
	o := wordweave.NewOrchestrator(settings,
		wordweave.WithProvider(provider.NewMockProvider()), wordweave.WithCache(cache.NewLRUCache(100)))

	_, s := annotate(t, o, biology)
	got := originals(s)
	if _, ok := got["photosynthesis"]; ok {
		t.Error("learned word should not be substituted")
	}
	if len(got) == 0 {
		t.Error("other words should still be substituted")
	}

	if n := s.MarkLearned("complex"); n != 1 {
		t.Errorf("MarkLearned reverted %d substitutions, want 1", n)
	}
	if _, ok := originals(s)["complex"]; ok {
		t.Error("complex should be reverted")
	}
}

func TestIntegration_TranslationOnlyStyle(t *testing.T) {
	settings := wordweave.DefaultSettings()
	settings.Style = wordweave.StyleTranslationOnly
	c := cache.NewLRUCache(100)
	c.Put("chemical", "en", "zh-CN", wordweave.CacheEntry{Translation: "化学的", Difficulty: wordweave.B1})
	o := wordweave.NewOrchestrator(settings, wordweave.WithCache(c))

	doc, s := annotate(t, o, biology)
	if len(s.Substitutions()) != 1 {
		t.Fatalf("expected one cached substitution, got %+v", s.Substitutions())
	}
	out, _ := doc.HTML()
	if !strings.Contains(out, "化学的") || strings.Contains(out, "chemical energy") {
		t.Errorf("translation-only style should hide the original: %s", out)
	}
}

// flakyProvider fails the first call with a retryable error.
type flakyProvider struct {
	mu    sync.Mutex
	calls int
	next  wordweave.AIProvider
}

func (p *flakyProvider) Translate(ctx context.Context, req wordweave.TranslateRequest) ([]wordweave.ParsedTranslation, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	p.mu.Unlock()
	if n == 1 {
		return nil, &wordweave.ProviderError{Message: "temporarily unavailable", Retryable: true}
	}
	return p.next.Translate(ctx, req)
}

func TestIntegration_RetryableProvider(t *testing.T) {
	flaky := &flakyProvider{next: provider.NewMockProvider()}
	p := wordweave.NewRetryableProvider(flaky, wordweave.RetryConfig{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}, nil)
	o := wordweave.NewOrchestrator(wordweave.DefaultSettings(), wordweave.WithProvider(p), wordweave.WithCache(cache.NewLRUCache(100)))

	_, s := annotate(t, o, biology)
	if originals(s)["photosynthesis"] != wordweave.FromProvider {
		t.Errorf("retry should recover the provider answer, got %v", originals(s))
	}
	if flaky.calls != 2 {
		t.Errorf("expected 2 calls, got %d", flaky.calls)
	}
}

func TestIntegration_ProviderFailureKeepsCachedWords(t *testing.T) {
	c := cache.NewLRUCache(100)
	c.Put("process", "en", "zh-CN", wordweave.CacheEntry{Translation: "过程", Difficulty: wordweave.B1})
	p := provider.NewMockProvider()
	p.Err = &wordweave.ProviderError{Message: "down"}
	breaker := provider.NewBreakerProvider(p, provider.BreakerConfig{MaxFailures: 1}, nil)
	o := wordweave.NewOrchestrator(wordweave.DefaultSettings(), wordweave.WithProvider(breaker), wordweave.WithCache(c))

	_, s := annotate(t, o, biology)
	got := originals(s)
	if len(got) != 1 || got["process"] != wordweave.FromCache {
		t.Errorf("only the cached word should be applied, got %v", got)
	}
	if snap := o.Stats().Snapshot(); snap.ProviderErrors != 1 {
		t.Errorf("expected 1 provider error, got %+v", snap)
	}
}
