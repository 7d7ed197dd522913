package session

import (
	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/risk"
)

// EventType names an outbound session event.
type EventType string

// Event types, in the order they are flushed after a batch.
const (
	// EventLastTick carries only the final tick of a batch; a frame at speed N
	// publishes one, not N. Per-tick work runs inside the session.
	EventLastTick    EventType = "last_tick"
	EventPosition    EventType = "position"
	EventPriceLines  EventType = "price_lines"
	EventTrades      EventType = "trades"
	EventRoundTrips  EventType = "round_trips"
	EventStats       EventType = "stats"
	EventMarkers     EventType = "markers"
	EventCandles     EventType = "candles"
	EventIndicators  EventType = "indicators"
	EventState       EventType = "state"
	EventOrderConfig EventType = "order_config"
	EventAutoExit    EventType = "auto_exit"
)

// Event is one message to the session's subscriber.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Listener receives session events. OnEvent is called while the session lock
// is held, so implementations must not call back into the Session.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// OnEvent implements Listener.
func (f ListenerFunc) OnEvent(e Event) { f(e) }

// TickEvent is the payload of EventLastTick: the most recent processed tick.
type TickEvent struct {
	Tick  domain.Tick `json:"tick"`
	Index int         `json:"index"`
}

// StatsEvent is the payload of EventStats.
type StatsEvent struct {
	Stats     domain.TradeStats       `json:"stats"`
	Analytics domain.SessionAnalytics `json:"analytics"`
}

// AutoExitEvent is the payload of EventAutoExit.
type AutoExitEvent struct {
	Reason string           `json:"reason"`
	Level  float64          `json:"level"`
	Trade  domain.Trade     `json:"trade"`
	Trip   domain.RoundTrip `json:"round_trip"`
}

// Marker kinds.
const (
	MarkerEntry  = "entry"
	MarkerExit   = "exit"
	MarkerStop   = "stop"
	MarkerTarget = "target"
)

// Marker annotates a fill on the chart.
type Marker struct {
	Time  int64            `json:"time"` // candle bucket, seconds
	Side  domain.OrderSide `json:"side"`
	Price float64          `json:"price"`
	Kind  string           `json:"kind"`
}

// Price line kinds.
const (
	LineEntry  = "entry"
	LineStop   = "stop"
	LineTarget = "target"
)

// PriceLine is a horizontal level drawn across the chart.
type PriceLine struct {
	Kind  string  `json:"kind"`
	Price float64 `json:"price"`
}

// priceLines projects the position and risk levels into chart lines.
func priceLines(pos domain.Position, levels risk.Levels) []PriceLine {
	lines := []PriceLine{}
	if pos.IsFlat() {
		return lines
	}
	lines = append(lines, PriceLine{Kind: LineEntry, Price: pos.EntryPrice})
	if levels.SL != nil {
		lines = append(lines, PriceLine{Kind: LineStop, Price: *levels.SL})
	}
	if levels.TP != nil {
		lines = append(lines, PriceLine{Kind: LineTarget, Price: *levels.TP})
	}
	return lines
}
