package indicator

import (
	"errors"
	"time"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"

	"tick-replay-lab/internal/domain"
)

var errSeriesOrder = errors.New("candles out of order for time series")

// toSeries converts candles into a techan time series.
// Each candle occupies a synthetic one-second period by position, so gaps and
// timeframe changes never make techan reject a candle.
func toSeries(candles []domain.Candle) (*techan.TimeSeries, error) {
	series := techan.NewTimeSeries()
	for i, c := range candles {
		period := techan.NewTimePeriod(time.Unix(int64(i), 0).UTC(), time.Second)
		candle := techan.NewCandle(period)
		candle.OpenPrice = big.NewDecimal(c.Open)
		candle.ClosePrice = big.NewDecimal(c.Close)
		candle.MaxPrice = big.NewDecimal(c.High)
		candle.MinPrice = big.NewDecimal(c.Low)
		candle.Volume = big.NewDecimal(float64(c.Volume))
		if !series.AddCandle(candle) {
			return nil, errSeriesOrder
		}
	}
	return series, nil
}

// evaluate reads ind from index from onwards.
func evaluate(ind techan.Indicator, n, from int) []float64 {
	if from >= n {
		return nil
	}
	// cached indicators (EMA) mis-seed when first asked for their seed index;
	// evaluating the last index first fills the cache back to the seed
	ind.Calculate(n - 1)
	out := make([]float64, 0, n-from)
	for i := from; i < n; i++ {
		out = append(out, ind.Calculate(i).Float())
	}
	return out
}

// closeIndicator builds the close price indicator for candles.
func closeIndicator(candles []domain.Candle) (techan.Indicator, error) {
	series, err := toSeries(candles)
	if err != nil {
		return nil, err
	}
	return techan.NewClosePriceIndicator(series), nil
}

func sma(candles []domain.Candle, period int) ([]domain.IndicatorValue, error) {
	if len(candles) < period {
		return []domain.IndicatorValue{}, nil
	}
	closes, err := closeIndicator(candles)
	if err != nil {
		return nil, err
	}
	values := evaluate(techan.NewSimpleMovingAverage(closes, period), len(candles), period-1)
	return withTimes(candles, values, period-1), nil
}

func ema(candles []domain.Candle, period int) ([]domain.IndicatorValue, error) {
	if len(candles) < period {
		return []domain.IndicatorValue{}, nil
	}
	closes, err := closeIndicator(candles)
	if err != nil {
		return nil, err
	}
	values := evaluate(techan.NewEMAIndicator(closes, period), len(candles), period-1)
	return withTimes(candles, values, period-1), nil
}

// bollinger returns 2-sigma bands around the SMA using population deviation.
func bollinger(candles []domain.Candle, period int) (upper, middle, lower []domain.IndicatorValue, err error) {
	if len(candles) < period {
		return nil, nil, nil, nil
	}
	closes, err := closeIndicator(candles)
	if err != nil {
		return nil, nil, nil, err
	}
	mid := evaluate(techan.NewSimpleMovingAverage(closes, period), len(candles), period-1)

	n := len(mid)
	upper = make([]domain.IndicatorValue, n)
	middle = make([]domain.IndicatorValue, n)
	lower = make([]domain.IndicatorValue, n)
	for i, m := range mid {
		end := i + period - 1
		std := stddev(candles[i:end+1], m)
		t := candles[end].Time
		upper[i] = domain.IndicatorValue{Time: t, Value: m + 2*std}
		middle[i] = domain.IndicatorValue{Time: t, Value: m}
		lower[i] = domain.IndicatorValue{Time: t, Value: m - 2*std}
	}
	return upper, middle, lower, nil
}

// macd returns the 12/26 MACD line from candle 25 and its 9-period signal from candle 33.
func macd(candles []domain.Candle) (line, signal []domain.IndicatorValue, err error) {
	if len(candles) < macdSlow {
		return nil, nil, nil
	}
	closes, err := closeIndicator(candles)
	if err != nil {
		return nil, nil, err
	}
	raw := evaluate(techan.NewMACDIndicator(closes, macdFast, macdSlow), len(candles), macdSlow-1)
	line = withTimes(candles, raw, macdSlow-1)
	signal = withTimes(candles, emaSeries(raw, macdSignal), macdSlow-1+macdSignal-1)
	return line, signal, nil
}
