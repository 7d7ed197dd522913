package domain

// OrderSide is the side of a fill.
type OrderSide string

// Order sides.
const (
	OrderBuy  OrderSide = "buy"
	OrderSell OrderSide = "sell"
)

// Trade is an immutable fill record in the session ledger.
type Trade struct {
	ID            string    `json:"id"` // "trade-N", sequential per session
	Side          OrderSide `json:"side"`
	Price         float64   `json:"price"`
	Size          int       `json:"size"`
	Timestamp     int64     `json:"timestamp"` // ms
	TickIndex     int       `json:"tick_index"`
	Pnl           *float64  `json:"pnl,omitempty"`            // set only on closing fills
	CumulativePnl *float64  `json:"cumulative_pnl,omitempty"` // set only on closing fills
}

// IsClose reports whether the fill closed a position.
func (t Trade) IsClose() bool {
	return t.Pnl != nil
}

// Exit reason codes for round trips.
const (
	ExitReasonManual     = "MANUAL"
	ExitReasonOpposite   = "OPPOSITE_ORDER"
	ExitReasonStopLoss   = "STOP_LOSS"
	ExitReasonTakeProfit = "TAKE_PROFIT"
)

// RoundTrip is one closed entry/exit cycle.
type RoundTrip struct {
	Side         PositionSide `json:"side"`
	EntryPrice   float64      `json:"entry_price"`
	ExitPrice    float64      `json:"exit_price"`
	Size         int          `json:"size"`
	Pnl          float64      `json:"pnl"`
	MFE          float64      `json:"mfe"` // best unrealized pnl, >= 0
	MAE          float64      `json:"mae"` // worst unrealized pnl, <= 0
	EntryTime    int64        `json:"entry_time"`
	ExitTime     int64        `json:"exit_time"`
	HoldingMs    int64        `json:"holding_ms"`
	HoldingTicks int          `json:"holding_ticks"`
	ExitReason   string       `json:"exit_reason"`
}
