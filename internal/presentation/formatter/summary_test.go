package formatter

import (
	"bytes"
	"strings"
	"testing"
)

func TestSummaryFormatterFormat(t *testing.T) {
	var buf bytes.Buffer
	formatter := NewSummaryFormatter()
	formatter.SetOutput(&buf)

	if err := formatter.Format(sampleRows()); err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"Activity Summary Report",
		"Range: 2024-03-01 10:00 to 2024-03-01 10:02",
		"Key Presses: 1,244",
		"coding:",
		"Tracked Time: 1m00s",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q\nGot:\n%s", want, output)
		}
	}
}

func TestSummaryFormatterEmpty(t *testing.T) {
	var buf bytes.Buffer
	formatter := NewSummaryFormatter()
	formatter.SetOutput(&buf)

	if err := formatter.Format(nil); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No activity to summarize") {
		t.Error("Expected empty summary message")
	}
}
