package mcp

import (
	"fmt"
	"strings"

	"github.com/explore-jakarta/recocache/pkg/cache"
	"github.com/explore-jakarta/recocache/pkg/models"
	"github.com/explore-jakarta/recocache/pkg/recommend"
)

// formatPlaces renders a lookup result as a text table.
func formatPlaces(res recommend.Result) string {
	source := "upstream"
	if res.Cached {
		source = "cache"
	}
	if len(res.Places) == 0 {
		return fmt.Sprintf("No recommendations (%s, from %s).", res.Key, source)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d recommendations for %s (from %s)\n", len(res.Places), res.Key, source)
	fmt.Fprintf(&b, "%6s  %-32s %-16s %6s %12s\n", "ID", "Name", "Category", "Rating", "Price")
	b.WriteString(strings.Repeat("-", 78) + "\n")
	for _, p := range res.Places {
		name := p.Name
		if len(name) > 32 {
			name = name[:29] + "..."
		}
		fmt.Fprintf(&b, "%6d  %-32s %-16s %6.1f %12.0f\n", p.ID, name, p.Category, p.AvgRating, p.Price)
	}
	return b.String()
}

// formatCacheStats renders cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cache Statistics\n"+
		"  Entries:  %d\n"+
		"  Hits:     %d\n"+
		"  Misses:   %d\n"+
		"  Hit Rate: %.1f%%\n",
		stats.Entries, stats.Hits, stats.Misses, stats.HitRate*100)
	b.WriteString("Live entries by kind\n")
	for _, k := range cache.Kinds {
		fmt.Fprintf(&b, "  %-9s %d\n", k+":", stats.Breakdown[string(k)])
	}
	return b.String()
}

func formatInvalidated(userID int64, n int) string {
	if n == 0 {
		return fmt.Sprintf("No cached recommendations for user %d.", userID)
	}
	return fmt.Sprintf("Removed %d cached entries for user %d.", n, userID)
}

// formatLookupSummary renders per-kind lookup aggregates as a text table.
func formatLookupSummary(rows []models.LookupSummary) string {
	if len(rows) == 0 {
		return "No lookups recorded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %8s %8s %8s %8s %9s %12s\n",
		"Kind", "Lookups", "Hits", "Misses", "Errors", "Hit Rate", "Avg Latency")
	b.WriteString(strings.Repeat("-", 70) + "\n")
	for _, r := range rows {
		rate := float64(0)
		if r.Lookups > 0 {
			rate = float64(r.Hits) / float64(r.Lookups) * 100
		}
		fmt.Fprintf(&b, "%-10s %8d %8d %8d %8d %8.1f%% %10.0fms\n",
			r.Kind, r.Lookups, r.Hits, r.Misses, r.Errors, rate, r.AvgLatencyMs)
	}
	return b.String()
}
