package domain

// PositionSide is the direction of the open position.
type PositionSide string

// Position sides.
const (
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
	SideFlat  PositionSide = "flat"
)

// Direction returns +1 for long, -1 for short and 0 when flat.
func (s PositionSide) Direction() float64 {
	switch s {
	case SideLong:
		return 1
	case SideShort:
		return -1
	default:
		return 0
	}
}

// Position is the single open position of a session.
type Position struct {
	Side          PositionSide `json:"side"`
	EntryPrice    float64      `json:"entry_price"` // size-weighted average fill
	Size          int          `json:"size"`
	UnrealizedPnl float64      `json:"unrealized_pnl"` // dollars
}

// IsFlat reports whether no position is open.
func (p Position) IsFlat() bool {
	return p.Side == SideFlat || p.Side == ""
}

// FlatPosition returns the rest state.
func FlatPosition() Position {
	return Position{Side: SideFlat}
}
