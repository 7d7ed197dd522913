package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// InstrumentConfig describes contract economics.
type InstrumentConfig struct {
	Symbol     string  `json:"symbol"`
	TickSize   float64 `json:"tick_size"`   // minimum price increment
	TickValue  float64 `json:"tick_value"`  // dollars per tick per contract
	PointValue float64 `json:"point_value"` // dollars per 1.0 price move per contract
}

// NQInstrument is the E-mini Nasdaq-100 contract.
func NQInstrument() InstrumentConfig {
	return InstrumentConfig{
		Symbol:     "NQ",
		TickSize:   0.25,
		TickValue:  5,
		PointValue: 20,
	}
}

// RoundToTick rounds price to the nearest tick increment.
func (c InstrumentConfig) RoundToTick(price float64) float64 {
	if c.TickSize <= 0 {
		return price
	}
	step := decimal.NewFromFloat(c.TickSize)
	return decimal.NewFromFloat(price).Div(step).Round(0).Mul(step).InexactFloat64()
}

var instruments = map[string]InstrumentConfig{
	"NQ":  NQInstrument(),
	"MNQ": {Symbol: "MNQ", TickSize: 0.25, TickValue: 0.5, PointValue: 2},
	"ES":  {Symbol: "ES", TickSize: 0.25, TickValue: 12.5, PointValue: 50},
	"MES": {Symbol: "MES", TickSize: 0.25, TickValue: 1.25, PointValue: 5},
}

// InstrumentFor returns the contract spec for a root symbol such as "NQ" or "es".
// Unknown symbols get NQ economics under their own name.
func InstrumentFor(symbol string) InstrumentConfig {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if c, ok := instruments[key]; ok {
		return c
	}
	c := NQInstrument()
	if key != "" {
		c.Symbol = key
	}
	return c
}
