package provider

import (
	"context"
	"strings"
	"sync"

	"github.com/ZaguanLabs/wordweave"
)

// MockProvider is a mock AI provider for testing. It answers from a fixed
// vocabulary: every known word that occurs in the request text, or that is
// listed in the request words, is returned.
type MockProvider struct {
	// Vocabulary holds the entries the mock knows.
	Vocabulary []ParsedTranslation
	// Err, when set, is returned by every call.
	Err error
	// Gate, when set, holds every call until it is closed or the context
	// ends.
	Gate <-chan struct{}

	mu       sync.Mutex
	calls    int
	requests []TranslateRequest
}

// NewMockProvider creates a mock with a small English→Chinese vocabulary.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Vocabulary: []ParsedTranslation{
			{Original: "photosynthesis", Translation: "光合作用", Phonetic: "/ˌfoʊtoʊˈsɪnθəsɪs/", Difficulty: wordweave.B2},
			{Original: "process", Translation: "过程", Phonetic: "/ˈprɑːses/", Difficulty: wordweave.B1},
			{Original: "complex", Translation: "复杂的", Phonetic: "/kəmˈpleks/", Difficulty: wordweave.B2},
			{Original: "chemical", Translation: "化学的", Phonetic: "/ˈkemɪkl/", Difficulty: wordweave.B1},
			{Original: "energy", Translation: "能量", Phonetic: "/ˈenərdʒi/", Difficulty: wordweave.A2},
		},
	}
}

// Translate returns mock translations.
func (m *MockProvider) Translate(ctx context.Context, req TranslateRequest) ([]ParsedTranslation, error) {
	m.mu.Lock()
	m.calls++
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}

	var out []ParsedTranslation
	for _, v := range m.Vocabulary {
		if len(req.Words) > 0 {
			for _, w := range req.Words {
				if strings.EqualFold(w, v.Original) {
					p := v
					p.Position = -1
					out = append(out, p)
					break
				}
			}
			continue
		}
		if i := wordweave.IndexWord(req.Text, v.Original); i >= 0 {
			p := v
			p.Position = i
			out = append(out, p)
		}
	}
	if out == nil {
		out = []ParsedTranslation{}
	}
	return out, nil
}

// CallCount returns the number of Translate calls.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the most recent request.
func (m *MockProvider) LastRequest() (TranslateRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return TranslateRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// Requests returns every request received, oldest first.
func (m *MockProvider) Requests() []TranslateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TranslateRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reset resets the call count and recorded requests.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = 0
	m.requests = nil
}

// Verify MockProvider implements AIProvider
var _ AIProvider = (*MockProvider)(nil)
