package wordweave

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
)

// FingerprintPrefix is the number of leading characters that feed a fingerprint.
const FingerprintPrefix = 100

// HashText computes the SHA-256 hash of the trimmed text.
func HashText(text string) string {
	trimmed := strings.TrimSpace(text)
	hash := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(hash[:])
}

// Fingerprint identifies a segment by a bounded prefix of its text and the
// structural path of its container. 64 bits of the hash are kept.
func Fingerprint(text, path string) string {
	prefix := strings.TrimSpace(TruncateText(text, FingerprintPrefix))
	hash := sha256.Sum256([]byte(prefix + "\x00" + path))
	return hex.EncodeToString(hash[:8])
}

// NormalizeWord returns the case-folded, trimmed form used in cache keys.
// A Caser is stateful, so one is built per call.
func NormalizeWord(word string) string {
	return cases.Fold().String(strings.TrimSpace(word))
}

// CacheKey generates a cache key from a word and a language pair.
func CacheKey(word, sourceLang, targetLang string) string {
	return NormalizeWord(word) + ":" + sourceLang + ":" + targetLang
}

// SplitCacheKey is the inverse of CacheKey. The word may itself contain
// colons, so the language parts are taken from the right.
func SplitCacheKey(key string) (word, sourceLang, targetLang string, ok bool) {
	last := strings.LastIndex(key, ":")
	if last < 0 {
		return "", "", "", false
	}
	mid := strings.LastIndex(key[:last], ":")
	if mid < 0 {
		return "", "", "", false
	}
	return key[:mid], key[mid+1 : last], key[last+1:], true
}

// TruncateText cuts text to at most n characters without splitting a rune.
func TruncateText(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
