package session

import (
	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/metrics"
	"tick-replay-lab/internal/risk"
)

// Snapshot is the full session state, sent to clients on connect.
type Snapshot struct {
	SessionID       string                             `json:"session_id"`
	DatasetID       string                             `json:"dataset_id,omitempty"`
	Instrument      domain.InstrumentConfig            `json:"instrument"`
	State           domain.ReplayState                 `json:"state"`
	Timeframe       domain.Timeframe                   `json:"timeframe"`
	Candles         []domain.Candle                    `json:"candles"`
	Position        domain.Position                    `json:"position"`
	Trades          []domain.Trade                     `json:"trades"`
	RoundTrips      []domain.RoundTrip                 `json:"round_trips"`
	Stats           domain.TradeStats                  `json:"stats"`
	Analytics       domain.SessionAnalytics            `json:"analytics"`
	OrderConfig     domain.OrderConfig                 `json:"order_config"`
	Risk            *domain.RiskState                  `json:"risk,omitempty"`
	Levels          risk.Levels                        `json:"levels"`
	PriceLines      []PriceLine                        `json:"price_lines"`
	Markers         []Marker                           `json:"markers"`
	Indicators      []domain.IndicatorConfig           `json:"indicators"`
	IndicatorValues map[string][]domain.IndicatorValue `json:"indicator_values"`
}

// Snapshot returns a copy of the complete session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.trader.Stats()
	roundTrips := s.trader.RoundTrips()
	pos := s.trader.Position()
	levels := s.risk.Levels()

	snap := Snapshot{
		SessionID:       s.id,
		DatasetID:       s.datasetID,
		Instrument:      s.trader.Instrument(),
		State:           s.replay.State(),
		Timeframe:       s.replay.Timeframe(),
		Candles:         s.replay.Candles(),
		Position:        pos,
		Trades:          s.trader.Trades(),
		RoundTrips:      roundTrips,
		Stats:           stats,
		Analytics:       metrics.Analyze(stats, roundTrips),
		OrderConfig:     s.risk.Config(),
		Levels:          levels,
		PriceLines:      priceLines(pos, levels),
		Markers:         s.markersCopy(),
		Indicators:      append([]domain.IndicatorConfig(nil), s.indicators...),
		IndicatorValues: make(map[string][]domain.IndicatorValue, len(s.indicatorValues)),
	}
	if rs, ok := s.risk.State(); ok {
		snap.Risk = &rs
	}
	for id, values := range s.indicatorValues {
		snap.IndicatorValues[id] = append([]domain.IndicatorValue(nil), values...)
	}
	return snap
}

// State returns the replay state.
func (s *Session) State() domain.ReplayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replay.State()
}

// Stats returns realized statistics and round-trip analytics.
func (s *Session) Stats() StatsEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsEvent()
}
