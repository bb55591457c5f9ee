package formatter

import (
	"bytes"
	"testing"

	"github.com/bytedance/sonic"
)

func TestJSONFormatterFormat(t *testing.T) {
	var buf bytes.Buffer
	formatter := NewJSONFormatter()
	formatter.SetOutput(&buf)

	if err := formatter.Format(sampleRows()); err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var decoded []TimelineRow
	if err := sonic.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(decoded))
	}
	if decoded[0].Process != "editor.exe" || decoded[0].Keys != 1234 {
		t.Errorf("Unexpected first row: %+v", decoded[0])
	}
}

func TestJSONFormatterEmpty(t *testing.T) {
	var buf bytes.Buffer
	formatter := NewJSONFormatter()
	formatter.SetOutput(&buf)

	if err := formatter.Format([]TimelineRow{}); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if got := string(bytes.TrimSpace(buf.Bytes())); got != "[]" {
		t.Errorf("Expected empty array, got %q", got)
	}
}
