package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders every run as CSV string.
func RenderCSV(runs []RunRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,dataset_id,timeframe,plan,round_trips,win_rate,realized_pnl,")
	sb.WriteString("profit_factor,max_drawdown,expectancy,sharpe_ratio,started_at\n")

	// Rows
	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%d,%.6f,%.6f,%s,%.6f,%.6f,%.6f,%d\n",
			r.RunID,
			r.DatasetID,
			r.Timeframe,
			quoteField(r.Plan),
			r.RoundTrips,
			r.WinRate,
			r.RealizedPnl,
			formatFactor(r.ProfitFactor),
			r.MaxDrawdown,
			r.Expectancy,
			r.SharpeRatio,
			r.StartedAt,
		))
	}

	return sb.String()
}

// quoteField quotes plans, which are comma-separated.
func quoteField(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
