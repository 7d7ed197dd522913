package reporting

import (
	"fmt"
	"math"
	"strings"
	"time"

	"tick-replay-lab/internal/idhash"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Replay Runs Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Datasets: %d | Runs: %d\n\n", r.DatasetCount, r.RunCount))

	// Datasets
	sb.WriteString("## Datasets\n\n")
	if len(r.Datasets) > 0 {
		sb.WriteString("| Dataset | Symbol | File | Format | Ticks | First Tick (UTC) | Last Tick (UTC) | Runs |\n")
		sb.WriteString("|---------|--------|------|--------|-------|------------------|-----------------|------|\n")
		for _, d := range r.Datasets {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %s | %s | %d |\n",
				idhash.ShortID(d.DatasetID), d.Symbol, escapeCell(d.SourceFile), d.Format, d.TickCount,
				formatMs(d.FirstTickMs), formatMs(d.LastTickMs), d.Runs))
		}
	} else {
		sb.WriteString("No datasets available.\n")
	}
	sb.WriteString("\n")

	// Best run per dataset
	sb.WriteString("## Best Run per Dataset\n\n")
	if len(r.Best) > 0 {
		writeRunTable(&sb, r.Best)
	} else {
		sb.WriteString("No runs available.\n")
	}
	sb.WriteString("\n")

	// All runs
	sb.WriteString("## All Runs\n\n")
	if len(r.Runs) > 0 {
		writeRunTable(&sb, r.Runs)
	} else {
		sb.WriteString("No runs available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func writeRunTable(sb *strings.Builder, runs []RunRow) {
	sb.WriteString("| Run | Dataset | TF | Plan | Trips | WinRate | P&L | PF | MaxDD | Expectancy | Sharpe |\n")
	sb.WriteString("|-----|---------|----|------|-------|---------|-----|----|-------|------------|--------|\n")
	for _, run := range runs {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %.4f | %.2f | %s | %.2f | %.2f | %.3f |\n",
			idhash.ShortID(run.RunID), idhash.ShortID(run.DatasetID), run.Timeframe, escapeCell(run.Plan),
			run.RoundTrips, run.WinRate, run.RealizedPnl, formatFactor(run.ProfitFactor),
			run.MaxDrawdown, run.Expectancy, run.SharpeRatio))
	}
}

func formatMs(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}

func formatFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "Infinity"
	}
	return fmt.Sprintf("%.2f", pf)
}

func escapeCell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}
