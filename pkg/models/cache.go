package models

import "time"

// CacheStats reports cache performance metrics.
type CacheStats struct {
	Entries   int64          `json:"entries"`
	Hits      int64          `json:"hits"`
	Misses    int64          `json:"misses"`
	HitRate   float64        `json:"hit_rate"`
	Breakdown map[string]int `json:"breakdown"`
	Keys      []string       `json:"keys,omitempty"`
}

// LookupOutcome classifies how a gateway lookup was served.
type LookupOutcome string

const (
	OutcomeHit   LookupOutcome = "hit"
	OutcomeMiss  LookupOutcome = "miss"
	OutcomeError LookupOutcome = "error"
)

// LookupRecord tracks a single gateway lookup.
type LookupRecord struct {
	ID        int64         `json:"id"`
	Kind      string        `json:"kind"`
	Key       string        `json:"key"`
	Outcome   LookupOutcome `json:"outcome"`
	Results   int           `json:"results"`
	LatencyMs int64         `json:"latency_ms"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// LookupSummary aggregates lookups for a single key kind.
type LookupSummary struct {
	Kind         string  `json:"kind"`
	Lookups      int     `json:"lookups"`
	Hits         int     `json:"hits"`
	Misses       int     `json:"misses"`
	Errors       int     `json:"errors"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}
