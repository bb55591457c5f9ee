package formatter

import (
	"time"

	"github.com/vipertrack/vipertrack/internal/store"
)

// TimelineRow is the presentation shape of one persisted bucket.
type TimelineRow struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Process string    `json:"process"`
	Title   string    `json:"title"`
	Keys    int       `json:"keys"`
	Clicks  int       `json:"clicks"`
	Scrolls int       `json:"scrolls"`
	Labels  []string  `json:"labels"`
}

// RowsFromRecords flattens stored records into presentation rows.
func RowsFromRecords(records []store.StoredRecord) []TimelineRow {
	rows := make([]TimelineRow, 0, len(records))
	for _, stored := range records {
		rec := stored.Record
		rows = append(rows, TimelineRow{
			Start:   rec.BucketStart,
			End:     rec.BucketEnd,
			Process: rec.DominantProcess,
			Title:   rec.DominantTitle,
			Keys:    rec.Counters["key_total"],
			Clicks:  rec.Counters["click_total"],
			Scrolls: rec.Counters["mouse_scroll"],
			Labels:  rec.ActiveLabels,
		})
	}
	return rows
}
