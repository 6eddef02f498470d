package wordweave

import "fmt"

// TranslationError is the base error type for resolution failures.
type TranslationError struct {
	Message string
	Cause   error
}

func (e *TranslationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// ProviderError indicates that the provider was unreachable or answered
// with a non-success status.
type ProviderError struct {
	Message    string
	Cause      error
	StatusCode int  // HTTP status of the provider response, 0 when none arrived
	Retryable  bool // Whether the operation can be retried
}

func (e *ProviderError) Error() string {
	msg := "provider error: " + e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("provider error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a cache persistence failure.
type CacheError struct {
	Message string
	Cause   error
	Store   string // Store backend that failed
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error (%s): %s: %v", e.Store, e.Message, e.Cause)
	}
	return fmt.Sprintf("cache error (%s): %s", e.Store, e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// ProcessorError indicates a document processing failure (parse error, etc.).
type ProcessorError struct {
	Message string
	Cause   error
	Op      string // The operation that failed
}

func (e *ProcessorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("processor error (%s): %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("processor error (%s): %s", e.Op, e.Message)
}

func (e *ProcessorError) Unwrap() error {
	return e.Cause
}

// ConfigError indicates that a required setting is missing or invalid.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Message)
}
