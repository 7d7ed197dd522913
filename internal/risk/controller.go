// Package risk keeps stop-loss, take-profit and trailing-stop levels for the
// open position and closes it when price crosses a level.
package risk

import (
	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/trading"
)

// Trader is the part of the trading engine the controller drives.
type Trader interface {
	Position() domain.Position
	FlattenWithReason(price float64, timestamp int64, tickIndex int, reason string) (trading.Fill, bool)
}

// Levels is the read-only projection of the live stop and target.
type Levels struct {
	SL *float64 `json:"sl,omitempty"`
	TP *float64 `json:"tp,omitempty"`
}

// Exit describes an automatic close.
type Exit struct {
	Reason string // domain.ExitReasonStopLoss or domain.ExitReasonTakeProfit
	Level  float64
	Fill   trading.Fill
}

// TickResult reports what a tick evaluation changed.
type TickResult struct {
	LevelsChanged bool
	Exit          *Exit
}

// Controller is the per-position risk state machine.
// Controller is not safe for concurrent use.
type Controller struct {
	config domain.OrderConfig

	armed bool
	side  domain.PositionSide
	entry float64
	state domain.RiskState
}

// NewController creates a controller with no open position.
func NewController(cfg domain.OrderConfig) *Controller {
	return &Controller{config: domain.OrderConfigPatch{}.Apply(cfg)}
}

// Config returns the current order configuration.
func (c *Controller) Config() domain.OrderConfig {
	return domain.OrderConfigPatch{}.Apply(c.config)
}

// UpdateConfig merges patch into the configuration and returns the result.
// Levels of an open position are not recomputed; trailing uses the new values from the next tick.
func (c *Controller) UpdateConfig(patch domain.OrderConfigPatch) domain.OrderConfig {
	c.config = patch.Apply(c.config)
	return c.Config()
}

// Arm (re)initializes the risk state for a new or enlarged position.
func (c *Controller) Arm(pos domain.Position) {
	if pos.IsFlat() {
		c.Disarm()
		return
	}
	dir := pos.Side.Direction()

	c.armed = true
	c.side = pos.Side
	c.entry = pos.EntryPrice
	c.state = domain.RiskState{
		TrailBestPrice: pos.EntryPrice,
		TrailActive:    c.config.TrailMode == domain.TrailFixed,
	}
	if c.config.SLEnabled {
		sl := pos.EntryPrice - dir*c.config.SLPoints
		c.state.SLLevel = &sl
	}
	if c.config.TPEnabled {
		tp := pos.EntryPrice + dir*c.config.TPPoints
		c.state.TPLevel = &tp
	}
}

// Disarm clears all levels.
func (c *Controller) Disarm() {
	c.armed = false
	c.side = domain.SideFlat
	c.entry = 0
	c.state = domain.RiskState{}
}

// Armed reports whether a position is being monitored.
func (c *Controller) Armed() bool {
	return c.armed
}

// State returns a copy of the risk state and whether one exists.
func (c *Controller) State() (domain.RiskState, bool) {
	if !c.armed {
		return domain.RiskState{}, false
	}
	s := c.state
	s.SLLevel = copyLevel(c.state.SLLevel)
	s.TPLevel = copyLevel(c.state.TPLevel)
	return s, true
}

// Levels returns the live stop and target.
func (c *Controller) Levels() Levels {
	if !c.armed {
		return Levels{}
	}
	return Levels{SL: copyLevel(c.state.SLLevel), TP: copyLevel(c.state.TPLevel)}
}

// OnTick ratchets the trailing stop and closes the position through trader
// at the exact level when price crosses the stop or target.
// Call after the trading engine's UpdateUnrealizedPnl.
func (c *Controller) OnTick(price float64, timestamp int64, tickIndex int, trader Trader) TickResult {
	if !c.armed {
		return TickResult{}
	}
	if trader.Position().IsFlat() {
		c.Disarm()
		return TickResult{LevelsChanged: true}
	}

	result := TickResult{LevelsChanged: c.trail(price)}

	reason, level, hit := c.crossed(price)
	if !hit {
		return result
	}
	fill, ok := trader.FlattenWithReason(level, timestamp, tickIndex, reason)
	c.Disarm()
	result.LevelsChanged = true
	if ok {
		result.Exit = &Exit{Reason: reason, Level: level, Fill: fill}
	}
	return result
}

// trail updates best price and stop. Returns true when the stop moved.
func (c *Controller) trail(price float64) bool {
	if !c.config.TrailEnabled {
		return false
	}
	dir := c.side.Direction()
	st := &c.state

	if (price-st.TrailBestPrice)*dir > 0 {
		st.TrailBestPrice = price
	}

	moved := false
	if !st.TrailActive {
		steps := c.config.ActiveSteps()
		profit := (price - c.entry) * dir
		for st.TrailStepIndex < len(steps) && profit >= steps[st.TrailStepIndex].Trigger {
			if c.tighten(c.entry + dir*steps[st.TrailStepIndex].SLMove) {
				moved = true
			}
			st.TrailStepIndex++
		}
		if st.TrailStepIndex >= len(steps) {
			st.TrailActive = true
		}
	}
	if st.TrailActive {
		if c.tighten(st.TrailBestPrice - dir*c.config.TrailPoints) {
			moved = true
		}
	}
	return moved
}

// tighten moves the stop to candidate only if it is more favorable.
func (c *Controller) tighten(candidate float64) bool {
	sl := c.state.SLLevel
	if sl != nil && (candidate-*sl)*c.side.Direction() <= 0 {
		return false
	}
	c.state.SLLevel = &candidate
	return true
}

// crossed checks stop before target.
func (c *Controller) crossed(price float64) (string, float64, bool) {
	long := c.side == domain.SideLong
	if sl := c.state.SLLevel; sl != nil {
		if (long && price <= *sl) || (!long && price >= *sl) {
			return domain.ExitReasonStopLoss, *sl, true
		}
	}
	if tp := c.state.TPLevel; tp != nil {
		if (long && price >= *tp) || (!long && price <= *tp) {
			return domain.ExitReasonTakeProfit, *tp, true
		}
	}
	return "", 0, false
}

func copyLevel(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
