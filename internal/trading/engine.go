// Package trading simulates fills, position keeping and realized statistics
// for a single instrument and a single position at a time.
package trading

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"tick-replay-lab/internal/domain"
)

// Action describes what a fill did to the position.
type Action string

// Fill actions.
const (
	ActionOpen  Action = "open"
	ActionAdd   Action = "add"
	ActionClose Action = "close"
)

// Fill is the result of an order that changed the position.
type Fill struct {
	Action    Action
	Trade     domain.Trade
	Position  domain.Position   // position after the fill
	RoundTrip *domain.RoundTrip // set when Action is ActionClose
}

// Engine is the single-position trading simulator.
// Engine is not safe for concurrent use.
type Engine struct {
	instrument domain.InstrumentConfig

	position   domain.Position
	trades     []domain.Trade
	roundTrips []domain.RoundTrip
	tradeSeq   int

	// open cycle
	entryTickIndex int
	entryTime      int64
	bestPnl        float64
	worstPnl       float64

	// running aggregates over closes
	cumulativePnl     decimal.Decimal
	closes            int
	winners           int
	losers            int
	grossWins         decimal.Decimal
	grossLosses       decimal.Decimal
	largestWin        float64
	largestLoss       float64
	peakPnl           float64
	maxDrawdown       float64
	totalHoldingTicks int
}

// NewEngine creates a flat engine for the given instrument.
func NewEngine(instrument domain.InstrumentConfig) *Engine {
	e := &Engine{instrument: instrument}
	e.Reset()
	return e
}

// Buy closes an open short in full (size is ignored), otherwise opens or adds to a long.
func (e *Engine) Buy(price float64, size int, timestamp int64, tickIndex int) Fill {
	if e.position.Side == domain.SideShort {
		return e.closePosition(price, timestamp, tickIndex, domain.ExitReasonOpposite)
	}
	return e.openPosition(domain.SideLong, price, size, timestamp, tickIndex)
}

// Sell closes an open long in full (size is ignored), otherwise opens or adds to a short.
func (e *Engine) Sell(price float64, size int, timestamp int64, tickIndex int) Fill {
	if e.position.Side == domain.SideLong {
		return e.closePosition(price, timestamp, tickIndex, domain.ExitReasonOpposite)
	}
	return e.openPosition(domain.SideShort, price, size, timestamp, tickIndex)
}

// Flatten closes any open position at price. Returns false when already flat.
func (e *Engine) Flatten(price float64, timestamp int64, tickIndex int) (Fill, bool) {
	return e.FlattenWithReason(price, timestamp, tickIndex, domain.ExitReasonManual)
}

// FlattenWithReason closes any open position at price, tagging the round trip with reason.
func (e *Engine) FlattenWithReason(price float64, timestamp int64, tickIndex int, reason string) (Fill, bool) {
	if e.position.IsFlat() {
		return Fill{}, false
	}
	return e.closePosition(price, timestamp, tickIndex, reason), true
}

// UpdateUnrealizedPnl recomputes the open position's P&L at currentPrice
// and tracks the excursion extremes of the current round trip.
func (e *Engine) UpdateUnrealizedPnl(currentPrice float64) {
	if e.position.IsFlat() {
		e.position.UnrealizedPnl = 0
		return
	}
	pnl := e.pnlAt(currentPrice)
	e.position.UnrealizedPnl = pnl
	e.trackExcursion(pnl)
}

// Position returns the current position.
func (e *Engine) Position() domain.Position {
	return e.position
}

// Trades returns a copy of the trade ledger.
func (e *Engine) Trades() []domain.Trade {
	out := make([]domain.Trade, len(e.trades))
	copy(out, e.trades)
	return out
}

// RoundTrips returns a copy of the round-trip ledger.
func (e *Engine) RoundTrips() []domain.RoundTrip {
	out := make([]domain.RoundTrip, len(e.roundTrips))
	copy(out, e.roundTrips)
	return out
}

// Instrument returns the instrument the engine simulates.
func (e *Engine) Instrument() domain.InstrumentConfig {
	return e.instrument
}

// Stats returns point-in-time aggregates over closed positions.
func (e *Engine) Stats() domain.TradeStats {
	grossWins := e.grossWins.InexactFloat64()
	grossLosses := e.grossLosses.InexactFloat64()

	s := domain.TradeStats{
		TotalTrades: e.closes,
		Winners:     e.winners,
		Losers:      e.losers,
		GrossWins:   grossWins,
		GrossLosses: grossLosses,
		MaxDrawdown: e.maxDrawdown,
		LargestWin:  e.largestWin,
		LargestLoss: e.largestLoss,
		RealizedPnl: e.cumulativePnl.InexactFloat64(),
	}
	if e.closes > 0 {
		s.WinRate = float64(e.winners) / float64(e.closes)
		s.AvgHoldingTicks = float64(e.totalHoldingTicks) / float64(e.closes)
	}
	if e.winners > 0 {
		s.AvgWin = e.grossWins.Div(decimal.NewFromInt(int64(e.winners))).InexactFloat64()
	}
	if e.losers > 0 {
		s.AvgLoss = e.grossLosses.Div(decimal.NewFromInt(int64(e.losers))).Neg().InexactFloat64()
	}
	switch {
	case e.grossLosses.IsPositive():
		s.ProfitFactor = e.grossWins.Div(e.grossLosses).InexactFloat64()
	case e.grossWins.IsPositive():
		s.ProfitFactor = math.Inf(1)
	}
	return s
}

// Reset clears position, ledgers and aggregates.
func (e *Engine) Reset() {
	e.position = domain.FlatPosition()
	e.trades = nil
	e.roundTrips = nil
	e.tradeSeq = 0
	e.entryTickIndex = 0
	e.entryTime = 0
	e.bestPnl = 0
	e.worstPnl = 0
	e.cumulativePnl = decimal.Zero
	e.closes = 0
	e.winners = 0
	e.losers = 0
	e.grossWins = decimal.Zero
	e.grossLosses = decimal.Zero
	e.largestWin = 0
	e.largestLoss = 0
	e.peakPnl = 0
	e.maxDrawdown = 0
	e.totalHoldingTicks = 0
}

func (e *Engine) openPosition(side domain.PositionSide, price float64, size int, timestamp int64, tickIndex int) Fill {
	action := ActionAdd
	if e.position.IsFlat() {
		action = ActionOpen
		e.position = domain.Position{Side: side, EntryPrice: price, Size: size}
		e.entryTickIndex = tickIndex
		e.entryTime = timestamp
		e.bestPnl = 0
		e.worstPnl = 0
	} else {
		total := e.position.Size + size
		if total != 0 {
			weighted := decimal.NewFromFloat(e.position.EntryPrice).Mul(decimal.NewFromInt(int64(e.position.Size))).
				Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(size))))
			e.position.EntryPrice = weighted.Div(decimal.NewFromInt(int64(total))).InexactFloat64()
		}
		e.position.Size = total
		e.position.UnrealizedPnl = e.pnlAt(price)
	}

	orderSide := domain.OrderBuy
	if side == domain.SideShort {
		orderSide = domain.OrderSell
	}
	trade := e.appendTrade(orderSide, price, size, timestamp, tickIndex, nil)
	return Fill{Action: action, Trade: trade, Position: e.position}
}

func (e *Engine) closePosition(price float64, timestamp int64, tickIndex int, reason string) Fill {
	pos := e.position
	pnlDec := e.pnlDecimal(price)
	pnl := pnlDec.InexactFloat64()
	e.trackExcursion(pnl)

	e.cumulativePnl = e.cumulativePnl.Add(pnlDec)
	cumulative := e.cumulativePnl.InexactFloat64()

	orderSide := domain.OrderSell
	if pos.Side == domain.SideShort {
		orderSide = domain.OrderBuy
	}
	trade := e.appendTrade(orderSide, price, pos.Size, timestamp, tickIndex, &closeResult{pnl: pnl, cumulative: cumulative})

	holdingTicks := tickIndex - e.entryTickIndex
	if holdingTicks < 0 {
		holdingTicks = 0
	}
	e.totalHoldingTicks += holdingTicks
	e.recordClose(pnlDec, pnl, cumulative)

	rt := domain.RoundTrip{
		Side:         pos.Side,
		EntryPrice:   pos.EntryPrice,
		ExitPrice:    price,
		Size:         pos.Size,
		Pnl:          pnl,
		MFE:          e.bestPnl,
		MAE:          e.worstPnl,
		EntryTime:    e.entryTime,
		ExitTime:     timestamp,
		HoldingMs:    timestamp - e.entryTime,
		HoldingTicks: holdingTicks,
		ExitReason:   reason,
	}
	e.roundTrips = append(e.roundTrips, rt)

	e.position = domain.FlatPosition()
	e.bestPnl = 0
	e.worstPnl = 0

	return Fill{Action: ActionClose, Trade: trade, Position: e.position, RoundTrip: &rt}
}

func (e *Engine) recordClose(pnlDec decimal.Decimal, pnl, cumulative float64) {
	e.closes++
	switch {
	case pnl > 0:
		e.winners++
		e.grossWins = e.grossWins.Add(pnlDec)
		if pnl > e.largestWin {
			e.largestWin = pnl
		}
	case pnl < 0:
		e.losers++
		e.grossLosses = e.grossLosses.Add(pnlDec.Abs())
		if pnl < e.largestLoss {
			e.largestLoss = pnl
		}
	}

	if cumulative > e.peakPnl {
		e.peakPnl = cumulative
	}
	if dd := e.peakPnl - cumulative; dd > e.maxDrawdown {
		e.maxDrawdown = dd
	}
}

type closeResult struct {
	pnl        float64
	cumulative float64
}

func (e *Engine) appendTrade(side domain.OrderSide, price float64, size int, timestamp int64, tickIndex int, closed *closeResult) domain.Trade {
	e.tradeSeq++
	t := domain.Trade{
		ID:        fmt.Sprintf("trade-%d", e.tradeSeq),
		Side:      side,
		Price:     price,
		Size:      size,
		Timestamp: timestamp,
		TickIndex: tickIndex,
	}
	if closed != nil {
		pnl, cumulative := closed.pnl, closed.cumulative
		t.Pnl = &pnl
		t.CumulativePnl = &cumulative
	}
	e.trades = append(e.trades, t)
	return t
}

func (e *Engine) trackExcursion(pnl float64) {
	if pnl > e.bestPnl {
		e.bestPnl = pnl
	}
	if pnl < e.worstPnl {
		e.worstPnl = pnl
	}
}

func (e *Engine) pnlAt(price float64) float64 {
	return e.pnlDecimal(price).InexactFloat64()
}

// pnlDecimal is (price - entry) * direction * size * pointValue.
func (e *Engine) pnlDecimal(price float64) decimal.Decimal {
	return decimal.NewFromFloat(price).
		Sub(decimal.NewFromFloat(e.position.EntryPrice)).
		Mul(decimal.NewFromFloat(e.position.Side.Direction())).
		Mul(decimal.NewFromInt(int64(e.position.Size))).
		Mul(decimal.NewFromFloat(e.instrument.PointValue))
}
