// Package artifact writes the pipeline's derived files: the JSON snapshot,
// the CSV export, rendered text assets, and the append-only history log.
// Structured writes are idempotent (no-op when content is unchanged) and
// crash-safe (staged in a temp file, atomically renamed into place).
package artifact

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bher20/gpumarketwatch/internal/market"
)

// WriteIfChanged stages content in a temp file beside path, compares it with
// the current target bytes and only then renames it into place. It returns
// true when the target changed. Readers never observe a partial file, and a
// byte-identical write leaves the target untouched so downstream
// change-detection stays quiet.
func WriteIfChanged(path string, content []byte) (bool, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return false, err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}

	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, content) {
		return false, nil
	}

	if err := os.Rename(tmpName, path); err != nil {
		return false, err
	}
	return true, nil
}

// WriteJSON writes the merged records as an indented JSON array with a
// trailing newline. Field order inside each record is fixed by the struct
// definition, so identical logical content is always byte-identical.
func WriteJSON(path string, records []market.GpuPrice) (bool, error) {
	if records == nil {
		records = []market.GpuPrice{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return false, err
	}
	return WriteIfChanged(path, append(data, '\n'))
}

// csvHeader lists record fields in sorted order, matching the JSON snapshot.
var csvHeader = []string{
	"content_hash", "fetched_at", "generated_at", "gpu", "on_demand",
	"provider_id", "region", "sku", "source_url", "spot", "usd_per_hour",
}

// WriteCSV writes the tabular export. Absent optional fields become empty
// cells rather than "false"/zero placeholders.
func WriteCSV(path string, records []market.GpuPrice) (bool, error) {
	var buf bytes.Buffer
	if len(records) > 0 {
		w := csv.NewWriter(&buf)
		if err := w.Write(csvHeader); err != nil {
			return false, err
		}
		for _, rec := range records {
			row := []string{
				rec.ContentHash,
				rec.FetchedAt.UTC().Format(time.RFC3339Nano),
				rec.GeneratedAt.UTC().Format(time.RFC3339Nano),
				rec.GPU,
				boolCell(rec.OnDemand),
				rec.ProviderID,
				strCell(rec.Region),
				strCell(rec.SKU),
				rec.SourceURL,
				boolCell(rec.Spot),
				strconv.FormatFloat(rec.USDPerHour, 'f', -1, 64),
			}
			if err := w.Write(row); err != nil {
				return false, err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return false, err
		}
	}
	return WriteIfChanged(path, buf.Bytes())
}

// WriteText writes a rendered text asset (report, dashboard file).
func WriteText(path, text string) (bool, error) {
	return WriteIfChanged(path, []byte(text))
}

// HistoryEntry is one line of the append-only run history.
type HistoryEntry struct {
	GeneratedAt string            `json:"generated_at"`
	RunID       string            `json:"run_id,omitempty"`
	Records     []market.GpuPrice `json:"records"`
}

// AppendHistory appends one self-contained JSON line per run. It never reads
// or rewrites prior content; single-writer semantics are assumed.
func AppendHistory(path string, entry HistoryEntry) error {
	if entry.Records == nil {
		entry.Records = []market.GpuPrice{}
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	return nil
}

// ReadHistory loads every history line. Malformed lines are skipped so one
// bad append never poisons report generation.
func ReadHistory(path string) ([]HistoryEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []HistoryEntry
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var entry HistoryEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func strCell(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func boolCell(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
