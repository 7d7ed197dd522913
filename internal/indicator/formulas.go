package indicator

import (
	"math"

	"tick-replay-lab/internal/domain"
)

// withTimes pairs values with candle times starting at candles[offset].
func withTimes(candles []domain.Candle, values []float64, offset int) []domain.IndicatorValue {
	out := make([]domain.IndicatorValue, 0, len(values))
	for i, v := range values {
		out = append(out, domain.IndicatorValue{Time: candles[offset+i].Time, Value: v})
	}
	return out
}

func stddev(window []domain.Candle, mean float64) float64 {
	sumSq := 0.0
	for _, c := range window {
		d := c.Close - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(window)))
}

func smaSeries(data []float64, period int) []float64 {
	if len(data) < period {
		return nil
	}
	out := make([]float64, 0, len(data)-period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	out = append(out, sum/float64(period))
	for i := period; i < len(data); i++ {
		sum += data[i] - data[i-period]
		out = append(out, sum/float64(period))
	}
	return out
}

// emaSeries seeds with the SMA of the first period values.
func emaSeries(data []float64, period int) []float64 {
	if len(data) < period {
		return nil
	}
	k := 2 / float64(period+1)
	seed := smaSeries(data[:period], period)[0]
	out := make([]float64, 0, len(data)-period+1)
	out = append(out, seed)
	e := seed
	for i := period; i < len(data); i++ {
		e = data[i]*k + e*(1-k)
		out = append(out, e)
	}
	return out
}

func wilderSmooth(data []float64, period int) []float64 {
	if len(data) < period {
		return nil
	}
	out := make([]float64, 0, len(data)-period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	v := sum / float64(period)
	out = append(out, v)
	for i := period; i < len(data); i++ {
		v = (v*float64(period-1) + data[i]) / float64(period)
		out = append(out, v)
	}
	return out
}

func closes(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func typicalPrice(c domain.Candle) float64 {
	return (c.High + c.Low + c.Close) / 3
}

func highestLowest(window []domain.Candle) (hh, ll float64) {
	hh, ll = math.Inf(-1), math.Inf(1)
	for _, c := range window {
		hh = math.Max(hh, c.High)
		ll = math.Min(ll, c.Low)
	}
	return hh, ll
}

func wma(candles []domain.Candle, period int) []domain.IndicatorValue {
	if len(candles) < period {
		return []domain.IndicatorValue{}
	}
	denom := float64(period*(period+1)) / 2
	values := make([]float64, 0, len(candles)-period+1)
	for i := period - 1; i < len(candles); i++ {
		s := 0.0
		for j := 0; j < period; j++ {
			s += candles[i-period+1+j].Close * float64(j+1)
		}
		values = append(values, s/denom)
	}
	return withTimes(candles, values, period-1)
}

// vwap accumulates typical price times volume, resetting at each UTC day.
// A bucket with no cumulative volume reports its close.
func vwap(candles []domain.Candle) []domain.IndicatorValue {
	out := make([]domain.IndicatorValue, 0, len(candles))
	if len(candles) == 0 {
		return out
	}
	var cumTPV, cumVol float64
	day := utcDay(candles[0].Time)
	for _, c := range candles {
		if d := utcDay(c.Time); d != day {
			cumTPV, cumVol, day = 0, 0, d
		}
		cumTPV += typicalPrice(c) * float64(c.Volume)
		cumVol += float64(c.Volume)
		v := c.Close
		if cumVol > 0 {
			v = cumTPV / cumVol
		}
		out = append(out, domain.IndicatorValue{Time: c.Time, Value: v})
	}
	return out
}

func utcDay(sec int64) int64 {
	d := sec / 86400
	if sec%86400 < 0 {
		d--
	}
	return d
}

// atr is Wilder-smoothed true range, first value at candle period.
func atr(candles []domain.Candle, period int) []domain.IndicatorValue {
	if len(candles) < period+1 {
		return []domain.IndicatorValue{}
	}
	tr := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		h, l, pc := candles[i].High, candles[i].Low, candles[i-1].Close
		tr = append(tr, math.Max(h-l, math.Max(math.Abs(h-pc), math.Abs(l-pc))))
	}
	return withTimes(candles, wilderSmooth(tr, period), period)
}

// rsi uses Wilder averages of gains and losses; no losses reads 100.
func rsi(candles []domain.Candle, period int) []domain.IndicatorValue {
	if len(candles) < period+1 {
		return []domain.IndicatorValue{}
	}
	value := func(gain, loss float64) float64 {
		if loss == 0 {
			return 100
		}
		return 100 - 100/(1+gain/loss)
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		ch := candles[i].Close - candles[i-1].Close
		if ch > 0 {
			avgGain += ch
		} else {
			avgLoss -= ch
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	values := []float64{value(avgGain, avgLoss)}
	for i := period + 1; i < len(candles); i++ {
		ch := candles[i].Close - candles[i-1].Close
		gain, loss := math.Max(ch, 0), math.Max(-ch, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		values = append(values, value(avgGain, avgLoss))
	}
	return withTimes(candles, values, period)
}

// stochastic returns %K (3-smoothed) from candle period+1 and %D from candle period+3.
// A flat window reads 50.
func stochastic(candles []domain.Candle, period int) (k, d []domain.IndicatorValue) {
	if len(candles) < period {
		return []domain.IndicatorValue{}, []domain.IndicatorValue{}
	}
	raw := make([]float64, 0, len(candles)-period+1)
	for i := period - 1; i < len(candles); i++ {
		hh, ll := highestLowest(candles[i-period+1 : i+1])
		r := 50.0
		if rng := hh - ll; rng != 0 {
			r = (candles[i].Close - ll) / rng * 100
		}
		raw = append(raw, r)
	}
	kSmooth := smaSeries(raw, 3)
	dValues := smaSeries(kSmooth, 3)
	return withTimes(candles, kSmooth, period+1), withTimes(candles, dValues, period+3)
}

// cci uses mean absolute deviation of typical price; zero deviation reads 0.
func cci(candles []domain.Candle, period int) []domain.IndicatorValue {
	if len(candles) < period {
		return []domain.IndicatorValue{}
	}
	tp := make([]float64, len(candles))
	for i, c := range candles {
		tp[i] = typicalPrice(c)
	}
	mean := smaSeries(tp, period)
	values := make([]float64, 0, len(mean))
	for i, m := range mean {
		md := 0.0
		for j := i; j < i+period; j++ {
			md += math.Abs(tp[j] - m)
		}
		md /= float64(period)
		v := 0.0
		if md != 0 {
			v = (tp[i+period-1] - m) / (0.015 * md)
		}
		values = append(values, v)
	}
	return withTimes(candles, values, period-1)
}

// williamsR ranges -100..0; a flat window reads -50.
func williamsR(candles []domain.Candle, period int) []domain.IndicatorValue {
	if len(candles) < period {
		return []domain.IndicatorValue{}
	}
	values := make([]float64, 0, len(candles)-period+1)
	for i := period - 1; i < len(candles); i++ {
		hh, ll := highestLowest(candles[i-period+1 : i+1])
		v := -50.0
		if rng := hh - ll; rng != 0 {
			v = (hh - candles[i].Close) / rng * -100
		}
		values = append(values, v)
	}
	return withTimes(candles, values, period-1)
}

func momentum(candles []domain.Candle, period int) []domain.IndicatorValue {
	if len(candles) <= period {
		return []domain.IndicatorValue{}
	}
	c := closes(candles)
	values := make([]float64, 0, len(c)-period)
	for i := period; i < len(c); i++ {
		values = append(values, c[i]-c[i-period])
	}
	return withTimes(candles, values, period)
}

// rateOfChange is in percent; a zero base reads 0.
func rateOfChange(candles []domain.Candle, period int) []domain.IndicatorValue {
	if len(candles) <= period {
		return []domain.IndicatorValue{}
	}
	c := closes(candles)
	values := make([]float64, 0, len(c)-period)
	for i := period; i < len(c); i++ {
		v := 0.0
		if prev := c[i-period]; prev != 0 {
			v = (c[i] - prev) / prev * 100
		}
		values = append(values, v)
	}
	return withTimes(candles, values, period)
}

// obv starts at 0 on the first candle and needs at least two candles.
func obv(candles []domain.Candle) []domain.IndicatorValue {
	if len(candles) < 2 {
		return []domain.IndicatorValue{}
	}
	out := make([]domain.IndicatorValue, 0, len(candles))
	out = append(out, domain.IndicatorValue{Time: candles[0].Time, Value: 0})
	total := 0.0
	for i := 1; i < len(candles); i++ {
		switch {
		case candles[i].Close > candles[i-1].Close:
			total += float64(candles[i].Volume)
		case candles[i].Close < candles[i-1].Close:
			total -= float64(candles[i].Volume)
		}
		out = append(out, domain.IndicatorValue{Time: candles[i].Time, Value: total})
	}
	return out
}
