package formatter

import (
	"bytes"
	"encoding/csv"
	"testing"
)

func TestCSVFormatterFormat(t *testing.T) {
	var buf bytes.Buffer
	formatter := NewCSVFormatter()
	formatter.SetOutput(&buf)

	if err := formatter.Format(sampleRows()); err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(records))
	}
	if records[0][0] != "start" || records[0][7] != "labels" {
		t.Errorf("Unexpected header: %v", records[0])
	}
	if records[1][2] != "editor.exe" || records[1][4] != "1234" {
		t.Errorf("Unexpected first row: %v", records[1])
	}
	if records[1][7] != "coding" {
		t.Errorf("Expected labels column to contain coding, got %q", records[1][7])
	}
}
