// Package cache provides the bounded word translation cache and the stores
// that persist its snapshots.
package cache

import (
	"context"

	"github.com/ZaguanLabs/wordweave"
)

// Record is the persisted form of one cache entry.
type Record struct {
	Key         string `json:"key"`
	Translation string `json:"translation"`
	Phonetic    string `json:"phonetic"`
	Difficulty  string `json:"difficulty"`
}

// Store persists cache snapshots. Save fully replaces the previous snapshot;
// records are ordered from least to most recently used.
type Store interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, records []Record) error
}

// ToRecord converts a cache record to its persisted form.
func ToRecord(r wordweave.CacheRecord) Record {
	return Record{
		Key:         r.Key,
		Translation: r.Entry.Translation,
		Phonetic:    r.Entry.Phonetic,
		Difficulty:  string(r.Entry.Difficulty),
	}
}

// FromRecord converts a persisted record back, reporting false for records
// with a malformed key or no translation.
func FromRecord(r Record) (wordweave.CacheRecord, bool) {
	word, src, tgt, ok := wordweave.SplitCacheKey(r.Key)
	if !ok || word == "" || r.Translation == "" {
		return wordweave.CacheRecord{}, false
	}
	d, ok := wordweave.ParseDifficulty(r.Difficulty)
	if !ok {
		d = wordweave.DefaultDifficulty
	}
	return wordweave.CacheRecord{
		Key:        r.Key,
		Word:       word,
		SourceLang: src,
		TargetLang: tgt,
		Entry: wordweave.CacheEntry{
			Translation: r.Translation,
			Phonetic:    r.Phonetic,
			Difficulty:  d,
		},
	}, true
}
