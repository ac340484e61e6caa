package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bher20/gpumarketwatch/internal/market"
)

func sampleRecords(t *testing.T) []market.GpuPrice {
	t.Helper()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	raws := []market.RawRecord{
		{"gpu": "A100", "usd_per_hour": 1.5, "provider_id": "runpod", "region": "us", "on_demand": true, "spot": false},
		{"gpu": "H100", "usd_per_hour": 3.25, "provider_id": "vast_ai", "spot": true},
	}
	var out []market.GpuPrice
	for _, raw := range raws {
		rec, err := market.Normalize(raw, now)
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		out = append(out, rec)
	}
	return out
}

func TestWriteIfChangedIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "prices.json")

	changed, err := WriteIfChanged(path, []byte("hello\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Error("first write should report changed")
	}

	changed, err = WriteIfChanged(path, []byte("hello\n"))
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("identical second write should report unchanged")
	}

	changed, err = WriteIfChanged(path, []byte("world\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Error("different content should report changed")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "world\n" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestWriteIfChangedLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prices.json")
	if _, err := WriteIfChanged(path, []byte("a")); err != nil {
		t.Fatal(err)
	}
	// Unchanged write discards its temp file.
	if _, err := WriteIfChanged(path, []byte("a")); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestWriteJSONStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.json")
	records := sampleRecords(t)

	if changed, err := WriteJSON(path, records); err != nil || !changed {
		t.Fatalf("first write: changed=%v err=%v", changed, err)
	}
	first, _ := os.ReadFile(path)

	if changed, err := WriteJSON(path, records); err != nil || changed {
		t.Fatalf("repeat write should be a no-op: changed=%v err=%v", changed, err)
	}
	second, _ := os.ReadFile(path)
	if string(first) != string(second) {
		t.Error("snapshot bytes differ between identical runs")
	}
	if !strings.HasSuffix(string(first), "\n") {
		t.Error("snapshot missing trailing newline")
	}
	if !strings.Contains(string(first), `"content_hash"`) {
		t.Error("snapshot missing content_hash field")
	}
}

func TestWriteJSONEmptySliceIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.json")
	if _, err := WriteJSON(path, nil); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("nil records should serialize as empty array, got %q", data)
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	if _, err := WriteCSV(path, sampleRecords(t)); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != strings.Join(csvHeader, ",") {
		t.Errorf("unexpected header %q", lines[0])
	}
	// The second record has no region or on_demand; those cells stay empty.
	if !strings.Contains(lines[2], ",,") {
		t.Errorf("absent optional fields should be empty cells: %q", lines[2])
	}
}

func TestWriteCSVEmptyRecordsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	if _, err := WriteCSV(path, nil); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if len(data) != 0 {
		t.Errorf("no records should produce an empty file, got %q", data)
	}
}

func TestAppendHistoryAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	records := sampleRecords(t)

	for i := 0; i < 3; i++ {
		err := AppendHistory(path, HistoryEntry{
			GeneratedAt: time.Date(2025, 3, 1, 12, i, 0, 0, time.UTC).Format(time.RFC3339),
			RunID:       "run-" + string(rune('a'+i)),
			Records:     records,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	entries, err := ReadHistory(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(entries))
	}
	if entries[2].RunID != "run-c" {
		t.Errorf("entries out of order: %q", entries[2].RunID)
	}
	if len(entries[0].Records) != 2 {
		t.Errorf("expected 2 records in entry, got %d", len(entries[0].Records))
	}
}

func TestReadHistoryMissingFile(t *testing.T) {
	entries, err := ReadHistory(filepath.Join(t.TempDir(), "nope.jsonl"))
	if err != nil {
		t.Fatalf("missing history should not error: %v", err)
	}
	if entries != nil {
		t.Errorf("expected nil entries, got %v", entries)
	}
}

func TestReadHistorySkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	content := `{"generated_at":"2025-03-01T12:00:00Z","records":[]}
not json at all
{"generated_at":"2025-03-01T12:05:00Z","records":[]}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := ReadHistory(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected malformed line skipped, got %d entries", len(entries))
	}
}
