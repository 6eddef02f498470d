// Package provider defines the AI provider interface and implementations.
package provider

import "github.com/ZaguanLabs/wordweave"

// AIProvider is the interface for AI translation backends.
// This is an alias to the main package interface for convenience.
type AIProvider = wordweave.AIProvider

// TranslateRequest is an alias to the main package type.
type TranslateRequest = wordweave.TranslateRequest

// ParsedTranslation is an alias to the main package type.
type ParsedTranslation = wordweave.ParsedTranslation
