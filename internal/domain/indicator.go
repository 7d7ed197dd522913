package domain

// IndicatorType names an indicator formula.
type IndicatorType string

// Supported indicators.
const (
	IndicatorSMA   IndicatorType = "SMA"
	IndicatorEMA   IndicatorType = "EMA"
	IndicatorWMA   IndicatorType = "WMA"
	IndicatorVWAP  IndicatorType = "VWAP"
	IndicatorBB    IndicatorType = "BB"
	IndicatorATR   IndicatorType = "ATR"
	IndicatorRSI   IndicatorType = "RSI"
	IndicatorMACD  IndicatorType = "MACD"
	IndicatorSTOCH IndicatorType = "STOCH"
	IndicatorCCI   IndicatorType = "CCI"
	IndicatorWILLR IndicatorType = "WILLR"
	IndicatorMOM   IndicatorType = "MOM"
	IndicatorROC   IndicatorType = "ROC"
	IndicatorOBV   IndicatorType = "OBV"
)

// IndicatorConfig selects one indicator series.
type IndicatorConfig struct {
	ID     string        `json:"id"`
	Type   IndicatorType `json:"type"`
	Period int           `json:"period"`
	Output string        `json:"output,omitempty"` // BB upper|middle|lower, MACD macd|signal, STOCH k|d
}

// IndicatorValue is one point of an indicator series.
type IndicatorValue struct {
	Time  int64   `json:"time"` // candle time, seconds
	Value float64 `json:"value"`
}

// DefaultIndicators returns the overlays a session starts with.
func DefaultIndicators() []IndicatorConfig {
	return []IndicatorConfig{
		{ID: "sma-20", Type: IndicatorSMA, Period: 20},
		{ID: "ema-9", Type: IndicatorEMA, Period: 9},
	}
}
