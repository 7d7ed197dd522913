// Package indicator computes technical indicator series over candles.
//
// Every function is pure: the same candles and config always yield the same
// values. Warmup candles produce no value, so a series is usually shorter
// than its input and aligned to candle times.
package indicator

import (
	"errors"
	"fmt"

	"tick-replay-lab/internal/domain"
)

var (
	// ErrUnknownIndicator is returned for an unsupported type or output.
	ErrUnknownIndicator = errors.New("unknown indicator")
	// ErrInvalidPeriod is returned when a windowed indicator has period < 1.
	ErrInvalidPeriod = errors.New("indicator period must be >= 1")
)

// MACD windows are fixed.
const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// Compute evaluates cfg over candles.
func Compute(candles []domain.Candle, cfg domain.IndicatorConfig) ([]domain.IndicatorValue, error) {
	if needsPeriod(cfg.Type) && cfg.Period < 1 {
		return nil, fmt.Errorf("%s: %w", cfg.Type, ErrInvalidPeriod)
	}
	p := cfg.Period

	switch cfg.Type {
	case domain.IndicatorSMA:
		return sma(candles, p)
	case domain.IndicatorEMA:
		return ema(candles, p)
	case domain.IndicatorWMA:
		return wma(candles, p), nil
	case domain.IndicatorVWAP:
		return vwap(candles), nil
	case domain.IndicatorBB:
		upper, middle, lower, err := bollinger(candles, p)
		if err != nil {
			return nil, err
		}
		return pickOutput(cfg, "middle", map[string][]domain.IndicatorValue{
			"upper": upper, "middle": middle, "lower": lower,
		})
	case domain.IndicatorATR:
		return atr(candles, p), nil
	case domain.IndicatorRSI:
		return rsi(candles, p), nil
	case domain.IndicatorMACD:
		line, signal, err := macd(candles)
		if err != nil {
			return nil, err
		}
		return pickOutput(cfg, "macd", map[string][]domain.IndicatorValue{
			"macd": line, "signal": signal,
		})
	case domain.IndicatorSTOCH:
		k, d := stochastic(candles, p)
		return pickOutput(cfg, "k", map[string][]domain.IndicatorValue{"k": k, "d": d})
	case domain.IndicatorCCI:
		return cci(candles, p), nil
	case domain.IndicatorWILLR:
		return williamsR(candles, p), nil
	case domain.IndicatorMOM:
		return momentum(candles, p), nil
	case domain.IndicatorROC:
		return rateOfChange(candles, p), nil
	case domain.IndicatorOBV:
		return obv(candles), nil
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Type, ErrUnknownIndicator)
	}
}

// ComputeAll evaluates every config, keyed by config ID.
// The first failing config aborts the batch.
func ComputeAll(candles []domain.Candle, cfgs []domain.IndicatorConfig) (map[string][]domain.IndicatorValue, error) {
	out := make(map[string][]domain.IndicatorValue, len(cfgs))
	for _, cfg := range cfgs {
		values, err := Compute(candles, cfg)
		if err != nil {
			return nil, fmt.Errorf("indicator %s: %w", cfg.ID, err)
		}
		out[cfg.ID] = values
	}
	return out, nil
}

// Validate checks cfg without computing it.
func Validate(cfg domain.IndicatorConfig) error {
	_, err := Compute(nil, cfg)
	return err
}

func needsPeriod(t domain.IndicatorType) bool {
	switch t {
	case domain.IndicatorVWAP, domain.IndicatorMACD, domain.IndicatorOBV:
		return false
	}
	return true
}

func pickOutput(cfg domain.IndicatorConfig, def string, outputs map[string][]domain.IndicatorValue) ([]domain.IndicatorValue, error) {
	name := cfg.Output
	if name == "" {
		name = def
	}
	values, ok := outputs[name]
	if !ok {
		return nil, fmt.Errorf("%s output %q: %w", cfg.Type, cfg.Output, ErrUnknownIndicator)
	}
	if values == nil {
		values = []domain.IndicatorValue{}
	}
	return values, nil
}
