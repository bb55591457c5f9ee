package formatter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

type TableFormatter struct {
	out     io.Writer
	headers []string
}

func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		out: os.Stdout,
		headers: []string{
			"Start", "Window", "Keys", "Clicks", "Scrolls", "Labels",
		},
	}
}

func (f *TableFormatter) SetOutput(out io.Writer) {
	f.out = out
}

func (f *TableFormatter) Format(rows []TimelineRow) error {
	cells := make([][]string, 0, len(rows)+1)
	var totalKeys, totalClicks, totalScrolls int
	for _, row := range rows {
		cells = append(cells, f.rowCells(row))
		totalKeys += row.Keys
		totalClicks += row.Clicks
		totalScrolls += row.Scrolls
	}
	totals := []string{
		"Total", "",
		formatNumber(totalKeys),
		formatNumber(totalClicks),
		formatNumber(totalScrolls),
		"",
	}

	widths := f.columnWidths(cells, totals)

	f.printBorder(widths, "top")
	f.printRow(f.headers, widths)
	f.printBorder(widths, "middle")
	for _, row := range cells {
		f.printRow(row, widths)
	}
	f.printBorder(widths, "middle")
	f.printRow(totals, widths)
	f.printBorder(widths, "bottom")
	return nil
}

func (f *TableFormatter) rowCells(row TimelineRow) []string {
	window := row.Process
	if row.Title != "" && row.Title != row.Process {
		window += " (" + row.Title + ")"
	}
	return []string{
		row.Start.Format("2006-01-02 15:04"),
		window,
		formatNumber(row.Keys),
		formatNumber(row.Clicks),
		formatNumber(row.Scrolls),
		strings.Join(row.Labels, ", "),
	}
}

// columnWidths sizes each column to its widest cell. Widths are measured in
// display cells so wide characters in window titles keep the borders aligned.
func (f *TableFormatter) columnWidths(cells [][]string, totals []string) []int {
	widths := make([]int, len(f.headers))
	for i, header := range f.headers {
		widths[i] = runewidth.StringWidth(header)
	}
	measure := func(row []string) {
		for i, value := range row {
			if w := runewidth.StringWidth(value); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for _, row := range cells {
		measure(row)
	}
	measure(totals)

	for i := range widths {
		if widths[i] < 6 {
			widths[i] = 6
		}
	}
	return widths
}

func (f *TableFormatter) printBorder(widths []int, borderType string) {
	var left, middle, right string
	switch borderType {
	case "top":
		left, middle, right = "┌", "┬", "┐"
	case "middle":
		left, middle, right = "├", "┼", "┤"
	case "bottom":
		left, middle, right = "└", "┴", "┘"
	}

	fmt.Fprint(f.out, left)
	for i, width := range widths {
		fmt.Fprint(f.out, strings.Repeat("─", width+2))
		if i < len(widths)-1 {
			fmt.Fprint(f.out, middle)
		}
	}
	fmt.Fprintln(f.out, right)
}

// printRow prints one row. Start, Window and Labels are left-aligned, the
// numeric columns right-aligned.
func (f *TableFormatter) printRow(values []string, widths []int) {
	fmt.Fprint(f.out, "│")
	for i, value := range values {
		if i == 0 || i == 1 || i == len(values)-1 {
			fmt.Fprintf(f.out, " %s │", runewidth.FillRight(value, widths[i]))
		} else {
			fmt.Fprintf(f.out, " %s │", runewidth.FillLeft(value, widths[i]))
		}
	}
	fmt.Fprintln(f.out)
}

func formatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result []byte
	for i, digit := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, digit)
	}
	return string(result)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}
