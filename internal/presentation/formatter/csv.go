package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

type CSVFormatter struct {
	out io.Writer
}

func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{out: os.Stdout}
}

func (f *CSVFormatter) SetOutput(out io.Writer) {
	f.out = out
}

func (f *CSVFormatter) Format(rows []TimelineRow) error {
	w := csv.NewWriter(f.out)
	defer w.Flush()

	headers := []string{"start", "end", "process", "title", "keys", "clicks", "scrolls", "labels"}
	if err := w.Write(headers); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			row.Start.Format(time.RFC3339),
			row.End.Format(time.RFC3339),
			row.Process,
			row.Title,
			fmt.Sprintf("%d", row.Keys),
			fmt.Sprintf("%d", row.Clicks),
			fmt.Sprintf("%d", row.Scrolls),
			strings.Join(row.Labels, " "),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}
