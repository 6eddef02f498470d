package wordweave

import "sync/atomic"

// Stats counts cache and provider activity. The zero value is ready to use
// and safe for concurrent updates.
type Stats struct {
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	newWords       atomic.Int64
	providerCalls  atomic.Int64
	providerErrors atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	CacheHits      int64 `json:"cache_hits"`
	CacheMisses    int64 `json:"cache_misses"`
	NewWords       int64 `json:"new_words"`
	ProviderCalls  int64 `json:"provider_calls"`
	ProviderErrors int64 `json:"provider_errors"`
}

func (s *Stats) addHits(n int) {
	if s != nil && n > 0 {
		s.cacheHits.Add(int64(n))
	}
}

func (s *Stats) addMiss() {
	if s != nil {
		s.cacheMisses.Add(1)
	}
}

func (s *Stats) addNewWords(n int) {
	if s != nil && n > 0 {
		s.newWords.Add(int64(n))
	}
}

func (s *Stats) addCall(err error) {
	if s == nil {
		return
	}
	s.providerCalls.Add(1)
	if err != nil {
		s.providerErrors.Add(1)
	}
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	return StatsSnapshot{
		CacheHits:      s.cacheHits.Load(),
		CacheMisses:    s.cacheMisses.Load(),
		NewWords:       s.newWords.Load(),
		ProviderCalls:  s.providerCalls.Load(),
		ProviderErrors: s.providerErrors.Load(),
	}
}

// Reset zeroes every counter.
func (s *Stats) Reset() {
	s.cacheHits.Store(0)
	s.cacheMisses.Store(0)
	s.newWords.Store(0)
	s.providerCalls.Store(0)
	s.providerErrors.Store(0)
}
