package metrics

import (
	"math"
	"testing"

	"tick-replay-lab/internal/domain"
)

func trips(pnls ...float64) []domain.RoundTrip {
	out := make([]domain.RoundTrip, len(pnls))
	for i, p := range pnls {
		out[i] = domain.RoundTrip{Pnl: p, HoldingMs: int64(1000 * (i + 1))}
	}
	return out
}

func TestAnalyze_Empty(t *testing.T) {
	a := Analyze(domain.TradeStats{}, nil)
	if a != (domain.SessionAnalytics{}) {
		t.Errorf("expected zero analytics, got %+v", a)
	}
}

func TestAnalyze_Streaks(t *testing.T) {
	a := Analyze(domain.TradeStats{}, trips(100, -20, 50, 60, 70, -10, 0, -5, 30))

	if a.RoundTrips != 9 {
		t.Errorf("expected 9 round trips, got %d", a.RoundTrips)
	}
	if a.ConsecutiveWins != 3 {
		t.Errorf("expected 3 consecutive wins, got %d", a.ConsecutiveWins)
	}
	// zero pnl counts as a loss
	if a.ConsecutiveLosses != 3 {
		t.Errorf("expected 3 consecutive losses, got %d", a.ConsecutiveLosses)
	}
}

func TestAnalyze_Expectancy(t *testing.T) {
	stats := domain.TradeStats{TotalTrades: 2, WinRate: 0.5, AvgWin: 100, AvgLoss: -20}
	a := Analyze(stats, trips(100, -20))

	if math.Abs(a.Expectancy-40) > 1e-9 {
		t.Errorf("expected expectancy 40, got %f", a.Expectancy)
	}
}

func TestAnalyze_SharpeNeedsTwoTrips(t *testing.T) {
	a := Analyze(domain.TradeStats{}, trips(100))
	if a.SharpeRatio != 0 {
		t.Errorf("expected sharpe 0 for a single trip, got %f", a.SharpeRatio)
	}

	a = Analyze(domain.TradeStats{}, trips(25, 25, 25))
	if a.SharpeRatio != 0 {
		t.Errorf("expected sharpe 0 for zero dispersion, got %f", a.SharpeRatio)
	}
}

func TestAnalyze_Sharpe(t *testing.T) {
	// mean 20, sample variance ((-10)^2 + 10^2) / 1 = 200
	a := Analyze(domain.TradeStats{}, trips(10, 30))
	want := 20 / math.Sqrt(200)
	if math.Abs(a.SharpeRatio-want) > 1e-9 {
		t.Errorf("expected sharpe %f, got %f", want, a.SharpeRatio)
	}
}

func TestAnalyze_Averages(t *testing.T) {
	rts := []domain.RoundTrip{
		{Pnl: 40, MFE: 60, MAE: -10, HoldingMs: 2000},
		{Pnl: -30, MFE: 10, MAE: -40, HoldingMs: 4000},
	}
	a := Analyze(domain.TradeStats{}, rts)

	if a.AvgMFE != 35 {
		t.Errorf("expected avg MFE 35, got %f", a.AvgMFE)
	}
	if a.AvgMAE != -25 {
		t.Errorf("expected avg MAE -25, got %f", a.AvgMAE)
	}
	if a.AvgHoldingMs != 3000 {
		t.Errorf("expected avg holding 3000, got %f", a.AvgHoldingMs)
	}
	if a.MedianPnl != 5 {
		t.Errorf("expected median 5, got %f", a.MedianPnl)
	}
}

func TestComputePercentile(t *testing.T) {
	sorted := []float64{-20, -10, -5, 50, 60, 100}

	if got := computePercentile(sorted, 0.50); math.Abs(got-22.5) > 1e-9 {
		t.Errorf("expected median 22.5, got %f", got)
	}
	if got := computePercentile(sorted, 1); got != 100 {
		t.Errorf("expected max 100, got %f", got)
	}
	if got := computePercentile([]float64{7}, 0.5); got != 7 {
		t.Errorf("expected single value 7, got %f", got)
	}
	if got := computePercentile(nil, 0.5); got != 0 {
		t.Errorf("expected 0 for empty input, got %f", got)
	}
}
