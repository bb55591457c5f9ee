package timeline

import (
	"time"

	"github.com/vipertrack/vipertrack/internal/core/bucket"
	"github.com/vipertrack/vipertrack/internal/core/event"
)

// Record is the persisted, immutable output unit: one closed bucket plus the
// labels active for it. Records are never mutated after creation; a
// correction is a new record pointing at the one it supersedes.
type Record struct {
	BucketStart     time.Time      `json:"bucket_start"`
	BucketEnd       time.Time      `json:"bucket_end"`
	Counters        map[string]int `json:"counters"`
	DominantProcess string         `json:"dominant_process"`
	DominantTitle   string         `json:"dominant_title"`
	ActiveLabels    []string       `json:"active_labels"`
	Generation      int64          `json:"generation"`
	Supersedes      int64          `json:"supersedes,omitempty"`
}

// NewRecord assembles the record for a closed bucket. Counters are keyed by
// kind name so the stored shape stays stable across versions; the rollups are
// included so queries do not have to recompute them.
func NewRecord(b *bucket.ActivityBucket, activeLabels []string, generation int64) Record {
	counters := make(map[string]int, 8)
	for _, kind := range event.CountedKinds() {
		counters[kind.String()] = b.Counter(kind)
	}
	counters["key_total"] = b.KeyTotal()
	counters["click_total"] = b.ClickTotal()
	for button, count := range b.Clicks {
		counters[button.String()+"_click"] = count
	}

	dominant, _ := b.DominantWindow()
	if activeLabels == nil {
		activeLabels = []string{}
	}

	return Record{
		BucketStart:     b.Start,
		BucketEnd:       b.End(),
		Counters:        counters,
		DominantProcess: dominant.Process,
		DominantTitle:   dominant.Title,
		ActiveLabels:    activeLabels,
		Generation:      generation,
	}
}
