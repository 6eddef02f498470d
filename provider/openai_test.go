package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ZaguanLabs/wordweave"
	"github.com/sashabaranov/go-openai"
)

// chatServer answers every chat completion with content and records the
// last request.
func chatServer(t *testing.T, status int, content string, got *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decoding request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": content, "type": "server_error"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIProvider_Translate(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := chatServer(t, http.StatusOK,
		"Here you go:\n```json\n[{\"original\":\"photosynthesis\",\"translation\":\"光合作用\",\"phonetic\":\"/ˌfoʊtoʊˈsɪnθəsɪs/\",\"difficulty\":\"B2\",\"position\":4}]\n```",
		&got)

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
	items, err := p.Translate(context.Background(), TranslateRequest{
		Text:        "The photosynthesis process is complex and fascinating to study in detail.",
		SourceLang:  "en",
		TargetLang:  "zh-CN",
		TargetCount: 6,
		MaxCount:    8,
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(items) != 1 || items[0].Original != "photosynthesis" || items[0].Translation != "光合作用" || items[0].Difficulty != wordweave.B2 {
		t.Errorf("items = %+v", items)
	}

	if got.Model != DefaultModel {
		t.Errorf("model = %q, want %q", got.Model, DefaultModel)
	}
	if got.MaxTokens != DefaultTextMaxTokens {
		t.Errorf("max_tokens = %d, want %d", got.MaxTokens, DefaultTextMaxTokens)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("messages = %+v", got.Messages)
	}
	user := got.Messages[1].Content
	for _, want := range []string{"about 6 words", "more than 8", "The photosynthesis process", "position"} {
		if !strings.Contains(user, want) {
			t.Errorf("user message should contain %q", want)
		}
	}
}

func TestOpenAIProvider_TranslateWords(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := chatServer(t, http.StatusOK,
		`{"translations":[{"original":"ephemeral","translation":"短暂的","difficulty":"C1"}]}`,
		&got)

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1", Model: "deepseek-chat", JSONMode: true})
	items, err := p.Translate(context.Background(), TranslateRequest{
		Words:      []string{"ephemeral"},
		SourceLang: "en",
		TargetLang: "zh-CN",
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(items) != 1 || items[0].Translation != "短暂的" {
		t.Errorf("items = %+v", items)
	}

	if got.Model != "deepseek-chat" {
		t.Errorf("model = %q", got.Model)
	}
	if got.MaxTokens != DefaultWordMaxTokens {
		t.Errorf("max_tokens = %d, want %d", got.MaxTokens, DefaultWordMaxTokens)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Error("JSON mode should request a JSON object response")
	}
	user := got.Messages[1].Content
	if !strings.Contains(user, "ephemeral") || !strings.Contains(user, "Translate every word") {
		t.Errorf("user message = %q", user)
	}
	if strings.Contains(user, "position") {
		t.Error("word lists have no positions")
	}
}

func TestOpenAIProvider_MalformedReplyIsEmpty(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "Sorry, I cannot help with that.", nil)

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
	items, err := p.Translate(context.Background(), TranslateRequest{Text: "Some text worth translating."})
	if err != nil {
		t.Fatalf("malformed reply should not be an error, got %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("expected empty result, got %+v", items)
	}
}

func TestOpenAIProvider_HTTPError(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		srv := chatServer(t, tt.status, "upstream says no", nil)
		p := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})

		_, err := p.Translate(context.Background(), TranslateRequest{Text: "Some text worth translating."})
		var provErr *wordweave.ProviderError
		if !errors.As(err, &provErr) {
			t.Fatalf("status %d: expected ProviderError, got %v", tt.status, err)
		}
		if provErr.Retryable != tt.retryable {
			t.Errorf("status %d: retryable = %v, want %v", tt.status, provErr.Retryable, tt.retryable)
		}
		if provErr.StatusCode != tt.status {
			t.Errorf("status %d: StatusCode = %d", tt.status, provErr.StatusCode)
		}
	}
}

func TestOpenAIProvider_UserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
	p.Translate(context.Background(), TranslateRequest{Text: "Some text worth translating."})
	if got != wordweave.UserAgent() {
		t.Errorf("User-Agent = %q, want %q", got, wordweave.UserAgent())
	}
}

func TestOpenAIProvider_EmptyRequest(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: "http://127.0.0.1:0/v1"})
	items, err := p.Translate(context.Background(), TranslateRequest{Text: "   "})
	if err != nil || len(items) != 0 {
		t.Errorf("empty request should short-circuit, got %v, %v", items, err)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  string
		want bool
	}{
		{"Rate limit reached", true},
		{"dial tcp: connection refused", true},
		{"context deadline exceeded (Client.Timeout exceeded)", true},
		{"status code: 502", true},
		{"invalid api key", false},
	}
	for _, tt := range tests {
		if got := isRetryableError(errors.New(tt.err)); got != tt.want {
			t.Errorf("isRetryableError(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider()

	items, err := m.Translate(context.Background(), TranslateRequest{Text: "The photosynthesis process is complex"})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %+v", items)
	}
	if items[0].Original != "photosynthesis" || items[0].Position != 4 {
		t.Errorf("first item = %+v", items[0])
	}

	items, _ = m.Translate(context.Background(), TranslateRequest{Words: []string{"Energy", "unknown"}})
	if len(items) != 1 || items[0].Original != "energy" || items[0].Position != -1 {
		t.Errorf("word items = %+v", items)
	}

	if m.CallCount() != 2 {
		t.Errorf("CallCount = %d, want 2", m.CallCount())
	}
	last, ok := m.LastRequest()
	if !ok || len(last.Words) != 2 {
		t.Errorf("LastRequest = %+v, %v", last, ok)
	}

	m.Reset()
	if m.CallCount() != 0 {
		t.Error("Reset should clear the call count")
	}
}

func TestMockProvider_GateHonoursContext(t *testing.T) {
	m := NewMockProvider()
	m.Gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Translate(ctx, TranslateRequest{Text: "energy"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
