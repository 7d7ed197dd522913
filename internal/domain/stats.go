package domain

import (
	"encoding/json"
	"math"
)

// TradeStats aggregates realized results of closed positions.
type TradeStats struct {
	TotalTrades     int     `json:"total_trades"` // closing fills
	Winners         int     `json:"winners"`
	Losers          int     `json:"losers"`
	WinRate         float64 `json:"win_rate"` // 0..1
	AvgWin          float64 `json:"avg_win"`
	AvgLoss         float64 `json:"avg_loss"` // negative
	GrossWins       float64 `json:"gross_wins"`
	GrossLosses     float64 `json:"gross_losses"` // positive magnitude
	ProfitFactor    float64 `json:"profit_factor"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	LargestWin      float64 `json:"largest_win"`
	LargestLoss     float64 `json:"largest_loss"` // negative
	AvgHoldingTicks float64 `json:"avg_holding_ticks"`
	RealizedPnl     float64 `json:"realized_pnl"`
}

// MarshalJSON writes an infinite profit factor as the string "Infinity".
func (s TradeStats) MarshalJSON() ([]byte, error) {
	type plain TradeStats
	out := struct {
		plain
		ProfitFactor any `json:"profit_factor"`
	}{plain: plain(s), ProfitFactor: s.ProfitFactor}
	if math.IsInf(s.ProfitFactor, 1) {
		out.ProfitFactor = "Infinity"
	}
	return json.Marshal(out)
}

// SessionAnalytics are derived from the round-trip ledger.
type SessionAnalytics struct {
	RoundTrips        int     `json:"round_trips"`
	ConsecutiveWins   int     `json:"consecutive_wins"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
	Expectancy        float64 `json:"expectancy"`
	SharpeRatio       float64 `json:"sharpe_ratio"`
	AvgMFE            float64 `json:"avg_mfe"`
	AvgMAE            float64 `json:"avg_mae"`
	AvgHoldingMs      float64 `json:"avg_holding_ms"`
	MedianPnl         float64 `json:"median_pnl"`
}
