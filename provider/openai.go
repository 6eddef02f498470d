package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ZaguanLabs/wordweave"
	"github.com/sashabaranov/go-openai"
)

// Default request parameters.
const (
	DefaultModel         = "gpt-4o-mini"
	DefaultTemperature   = 0.3
	DefaultTextMaxTokens = 2000
	DefaultWordMaxTokens = 1000
)

// OpenAIProvider implements AIProvider against any OpenAI-compatible chat
// completion endpoint.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	jsonMode    bool
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string  // API key
	Model       string  // Model to use (default: "gpt-4o-mini")
	Temperature float32 // Temperature for generation (default: 0.3)
	BaseURL     string  // Custom base URL for compatible endpoints (optional)
	MaxTokens   int     // Completion cap; 0 picks 2000 for text and 1000 for word lists
	JSONMode    bool    // Request a JSON object response ({"translations": [...]})
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = &http.Client{Transport: userAgentTransport{base: http.DefaultTransport}}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		maxTokens:   cfg.MaxTokens,
		jsonMode:    cfg.JSONMode,
	}
}

// Translate asks the model to pick and translate terms from req.Text, or to
// translate every entry of req.Words. A reply that cannot be parsed yields
// an empty result rather than an error.
func (p *OpenAIProvider) Translate(ctx context.Context, req TranslateRequest) ([]ParsedTranslation, error) {
	if strings.TrimSpace(req.Text) == "" && len(req.Words) == 0 {
		return []ParsedTranslation{}, nil
	}

	maxTokens := p.maxTokens
	if maxTokens == 0 {
		maxTokens = DefaultTextMaxTokens
		if len(req.Words) > 0 {
			maxTokens = DefaultWordMaxTokens
		}
	}

	chatReq := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: p.buildUserMessage(req)},
		},
		Temperature: p.temperature,
		MaxTokens:   maxTokens,
	}
	if p.jsonMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		status := statusCode(err)
		return nil, &wordweave.ProviderError{
			Message:    "chat completion failed",
			Cause:      err,
			StatusCode: status,
			Retryable:  status == http.StatusTooManyRequests || status >= 500 || isRetryableError(err),
		}
	}

	if len(resp.Choices) == 0 {
		return nil, &wordweave.ProviderError{
			Message:   "no choices in response",
			Retryable: true,
		}
	}

	return wordweave.ParseTranslations(resp.Choices[0].Message.Content), nil
}

func (p *OpenAIProvider) buildSystemPrompt() string {
	prompt := "You are a professional language-learning assistant. Always answer with valid JSON."
	if p.jsonMode {
		prompt += ` Wrap the array in an object under the key "translations".`
	}
	return prompt
}

func (p *OpenAIProvider) buildUserMessage(req TranslateRequest) string {
	sourceName := wordweave.GetLanguageName(req.SourceLang)
	targetName := wordweave.GetLanguageName(req.TargetLang)
	learning := req.LearningLang
	if learning == "" {
		learning = req.TargetLang
	}
	learningName := wordweave.GetLanguageName(learning)

	var b strings.Builder
	if len(req.Words) > 0 {
		fmt.Fprintf(&b, `# Task
Translate the following specific words.

# Rules
1. Translate every word provided. Do not skip any.
2. Words in %s are translated to %s, and the other way round.
`, sourceName, targetName)
	} else {
		maxCount := req.MaxCount
		if maxCount <= 0 {
			maxCount = req.TargetCount * 2
		}
		fmt.Fprintf(&b, `# Task
Analyse the text below and pick the words most worth learning, then translate them.

# Rules
1. Pick about %d words. You may adjust to the content, but never return more than %d.
2. Do not translate domains, addresses, abbreviations, personal names, place names, product names, numbers, code, URLs, or words already in the target language.
3. Prefer words with learning value across a range of difficulty levels.
4. Translate from %s to %s.
5. Choose the single translation that fits the context best, so the mixed sentence stays easy to read.
`, req.TargetCount, maxCount, sourceName, targetName)
	}

	fmt.Fprintf(&b, `
CEFR levels from easiest to hardest: A1, A2, B1, B2, C1, C2.

# Format
Return a JSON array. Each element has:
- original: the word as written
- translation: the translation
- phonetic: pronunciation in the learning language (%s)
- difficulty: CEFR level (A1/A2/B1/B2/C1/C2), assessed carefully
`, learningName)
	if len(req.Words) == 0 {
		b.WriteString("- position: start offset of the word in the text\n")
	}

	if len(req.Words) > 0 {
		fmt.Fprintf(&b, "\n# Words\n%s\n", strings.Join(req.Words, ", "))
	} else {
		fmt.Fprintf(&b, "\n# Text\n%s\n", req.Text)
	}
	if p.jsonMode {
		b.WriteString("\n# Output\nReturn only a JSON object of the form {\"translations\": [...]}, nothing else.")
	} else {
		b.WriteString("\n# Output\nReturn only the JSON array, nothing else.")
	}
	return b.String()
}

// userAgentTransport tags provider requests with the wordweave user agent.
type userAgentTransport struct {
	base http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", wordweave.UserAgent())
	return t.base.RoundTrip(req)
}

// statusCode extracts the HTTP status carried by go-openai errors.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func isRetryableError(err error) bool {
	// Check for common retryable conditions
	errStr := err.Error()
	retryablePatterns := []string{
		"rate limit",
		"timeout",
		"connection refused",
		"connection reset",
		"temporary",
		"503",
		"502",
		"500",
		"429",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(strings.ToLower(errStr), pattern) {
			return true
		}
	}
	return false
}

// Verify OpenAIProvider implements AIProvider
var _ AIProvider = (*OpenAIProvider)(nil)
