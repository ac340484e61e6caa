// Package render produces the markdown daily report and the static
// dashboard site from merged price records.
package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bher20/gpumarketwatch/internal/artifact"
	"github.com/bher20/gpumarketwatch/internal/market"
)

// GenerateReport builds the markdown daily report: headline counts, the
// cheapest offer per GPU, price movement against the previous run, provider
// coverage and a short changelog of recent runs.
func GenerateReport(records []market.GpuPrice, history []artifact.HistoryEntry, generatedAt time.Time) string {
	var b strings.Builder
	b.WriteString("# GPU Market Daily Report\n\n")
	fmt.Fprintf(&b, "Generated at: `%s`\n\n", generatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Total providers: **%d**\n", countProviders(records))
	fmt.Fprintf(&b, "Total offers: **%d**\n\n", len(records))

	if len(records) > 0 {
		cheapest := cheapestPerGPU(records)
		b.WriteString("## Cheapest per GPU\n\n")
		writeTable(&b, []string{"gpu", "usd_per_hour", "provider_id", "region", "sku"}, cheapestRows(cheapest))
		b.WriteString("\n")

		if movers := computeMovers(previousRecords(history), records); len(movers) > 0 {
			b.WriteString("## Top Movers vs Previous\n\n")
			writeTable(&b, []string{"gpu", "usd_per_hour", "prev_usd_per_hour", "delta"}, moverRows(movers))
			b.WriteString("\n")
		}

		b.WriteString("## Provider Coverage\n\n")
		writeTable(&b, []string{"provider_id", "offers"}, coverageRows(records))
		b.WriteString("\n")
	}

	if changelog := recentRuns(history); len(changelog) > 0 {
		b.WriteString("## Recent Runs\n\n")
		for _, line := range changelog {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// mover is one GPU whose cheapest offer price changed between runs.
type mover struct {
	gpu      string
	current  float64
	previous float64
	delta    float64
}

func countProviders(records []market.GpuPrice) int {
	seen := make(map[string]struct{})
	for _, rec := range records {
		seen[rec.ProviderID] = struct{}{}
	}
	return len(seen)
}

// cheapestPerGPU returns the lowest-priced record per GPU name, sorted by
// GPU name.
func cheapestPerGPU(records []market.GpuPrice) []market.GpuPrice {
	best := make(map[string]market.GpuPrice)
	for _, rec := range records {
		cur, seen := best[rec.GPU]
		if !seen || rec.USDPerHour < cur.USDPerHour {
			best[rec.GPU] = rec
		}
	}
	out := make([]market.GpuPrice, 0, len(best))
	for _, rec := range best {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GPU < out[j].GPU })
	return out
}

// previousRecords returns the snapshot from the run before the current one.
// The newest history line is the current run, so the comparison baseline is
// the second-to-last entry.
func previousRecords(history []artifact.HistoryEntry) []market.GpuPrice {
	if len(history) < 2 {
		return nil
	}
	return history[len(history)-2].Records
}

// computeMovers compares the cheapest price per GPU between the previous and
// current snapshots. GPUs absent from the previous snapshot are skipped. The
// ten largest price drops come first.
func computeMovers(previous, current []market.GpuPrice) []mover {
	if len(previous) == 0 {
		return nil
	}
	prevBest := make(map[string]float64)
	for _, rec := range cheapestPerGPU(previous) {
		prevBest[rec.GPU] = rec.USDPerHour
	}

	var movers []mover
	for _, rec := range cheapestPerGPU(current) {
		prev, found := prevBest[rec.GPU]
		if !found {
			continue
		}
		movers = append(movers, mover{
			gpu:      rec.GPU,
			current:  rec.USDPerHour,
			previous: prev,
			delta:    rec.USDPerHour - prev,
		})
	}
	sort.Slice(movers, func(i, j int) bool {
		if movers[i].delta != movers[j].delta {
			return movers[i].delta < movers[j].delta
		}
		return movers[i].gpu < movers[j].gpu
	})
	if len(movers) > 10 {
		movers = movers[:10]
	}
	return movers
}

func recentRuns(history []artifact.HistoryEntry) []string {
	start := 0
	if len(history) > 5 {
		start = len(history) - 5
	}
	var lines []string
	for _, entry := range history[start:] {
		lines = append(lines, fmt.Sprintf("- `%s` — %d offers", entry.GeneratedAt, len(entry.Records)))
	}
	return lines
}

func cheapestRows(records []market.GpuPrice) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.GPU,
			fmt.Sprintf("%.4f", rec.USDPerHour),
			rec.ProviderID,
			deref(rec.Region),
			deref(rec.SKU),
		})
	}
	return rows
}

func moverRows(movers []mover) [][]string {
	rows := make([][]string, 0, len(movers))
	for _, m := range movers {
		rows = append(rows, []string{
			m.gpu,
			fmt.Sprintf("%.4f", m.current),
			fmt.Sprintf("%.4f", m.previous),
			fmt.Sprintf("%+.4f", m.delta),
		})
	}
	return rows
}

func coverageRows(records []market.GpuPrice) [][]string {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.ProviderID]++
	}
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string{id, fmt.Sprintf("%d", counts[id])})
	}
	return rows
}

func writeTable(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, row := range rows {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
