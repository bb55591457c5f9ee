package formatter

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// SummaryFormatter renders an aggregate report instead of the raw timeline:
// overall activity totals plus a per-label breakdown of tracked time.
type SummaryFormatter struct {
	out io.Writer
}

func NewSummaryFormatter() *SummaryFormatter {
	return &SummaryFormatter{out: os.Stdout}
}

func (f *SummaryFormatter) SetOutput(out io.Writer) {
	f.out = out
}

type labelStat struct {
	buckets int
	keys    int
	clicks  int
}

func (f *SummaryFormatter) Format(rows []TimelineRow) error {
	fmt.Fprintln(f.out, strings.Repeat("=", 60))
	fmt.Fprintln(f.out, "Activity Summary Report")
	fmt.Fprintln(f.out, strings.Repeat("=", 60))
	fmt.Fprintln(f.out)

	if len(rows) == 0 {
		fmt.Fprintln(f.out, "No activity to summarize")
		fmt.Fprintln(f.out)
		fmt.Fprintln(f.out, strings.Repeat("=", 60))
		return nil
	}

	first := rows[0].Start.Format("2006-01-02 15:04")
	last := rows[len(rows)-1].End.Format("2006-01-02 15:04")
	fmt.Fprintf(f.out, "Range: %s to %s\n", first, last)
	fmt.Fprintln(f.out)

	var totalKeys, totalClicks, totalScrolls int
	labelStats := make(map[string]*labelStat)
	for _, row := range rows {
		totalKeys += row.Keys
		totalClicks += row.Clicks
		totalScrolls += row.Scrolls
		for _, id := range row.Labels {
			stat, ok := labelStats[id]
			if !ok {
				stat = &labelStat{}
				labelStats[id] = stat
			}
			stat.buckets++
			stat.keys += row.Keys
			stat.clicks += row.Clicks
		}
	}

	fmt.Fprintln(f.out, "Activity:")
	fmt.Fprintf(f.out, "  Buckets:     %s\n", formatNumber(len(rows)))
	fmt.Fprintf(f.out, "  Key Presses: %s\n", formatNumber(totalKeys))
	fmt.Fprintf(f.out, "  Clicks:      %s\n", formatNumber(totalClicks))
	fmt.Fprintf(f.out, "  Scrolls:     %s\n", formatNumber(totalScrolls))
	fmt.Fprintln(f.out)

	if len(labelStats) > 0 {
		fmt.Fprintln(f.out, "Labels:")
		fmt.Fprintln(f.out, strings.Repeat("-", 60))

		ids := make([]string, 0, len(labelStats))
		for id := range labelStats {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		bucketSpan := rows[0].End.Sub(rows[0].Start)
		for _, id := range ids {
			stat := labelStats[id]
			fmt.Fprintf(f.out, "\n%s:\n", id)
			fmt.Fprintf(f.out, "  Tracked Time: %s\n", formatDuration(bucketSpan*time.Duration(stat.buckets)))
			fmt.Fprintf(f.out, "  Buckets:      %s\n", formatNumber(stat.buckets))
			fmt.Fprintf(f.out, "  Key Presses:  %s\n", formatNumber(stat.keys))
			fmt.Fprintf(f.out, "  Clicks:       %s\n", formatNumber(stat.clicks))
		}
	}

	fmt.Fprintln(f.out)
	fmt.Fprintln(f.out, strings.Repeat("=", 60))
	return nil
}
