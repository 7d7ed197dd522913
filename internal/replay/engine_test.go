package replay

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tick-replay-lab/internal/domain"
)

// recorder collects engine events for verification.
type recorder struct {
	ticks   []int
	candles [][]domain.Candle
	states  []domain.ReplayState
	events  []string
	onTick  func(index int)
}

func (r *recorder) OnTick(_ domain.Tick, index int) {
	r.ticks = append(r.ticks, index)
	r.events = append(r.events, fmt.Sprintf("tick:%d", index))
	if r.onTick != nil {
		r.onTick(index)
	}
}

func (r *recorder) OnCandles(c []domain.Candle) {
	r.candles = append(r.candles, c)
	r.events = append(r.events, "candles")
}

func (r *recorder) OnState(s domain.ReplayState) {
	r.states = append(r.states, s)
	r.events = append(r.events, "state")
}

func (r *recorder) lastState() domain.ReplayState {
	return r.states[len(r.states)-1]
}

func (r *recorder) lastCandles() []domain.Candle {
	return r.candles[len(r.candles)-1]
}

func (r *recorder) clear() {
	r.ticks = nil
	r.candles = nil
	r.states = nil
	r.events = nil
}

// makeTicks builds ticks spaced stepMs apart with the given prices.
func makeTicks(stepMs int64, prices ...float64) []domain.Tick {
	ticks := make([]domain.Tick, len(prices))
	for i, p := range prices {
		ticks[i] = domain.Tick{Timestamp: int64(i) * stepMs, Price: p, Bid: p - 0.25, Ask: p + 0.25, Volume: 1}
	}
	return ticks
}

// makeRandomTicks builds n ticks spaced stepMs apart with a seeded random walk.
func makeRandomTicks(n int, stepMs int64, seed int64) []domain.Tick {
	rng := rand.New(rand.NewSource(seed))
	prices := make([]float64, n)
	p := 15000.0
	for i := range prices {
		p += float64(rng.Intn(9)-4) * 0.25
		prices[i] = p
	}
	ticks := makeTicks(stepMs, prices...)
	for i := range ticks {
		ticks[i].Volume = int64(rng.Intn(5) + 1)
	}
	return ticks
}

func newTestEngine(ticks []domain.Tick, opts ...Option) (*Engine, *recorder, *ManualScheduler) {
	rec := &recorder{}
	sched := NewManualScheduler()
	e := NewEngine(ticks, rec, sched, opts...)
	rec.clear()
	return e, rec, sched
}

func TestStepMatchesRebuild(t *testing.T) {
	// 1000 ticks, 180ms apart: spans buckets 0, 60 and 120 at 1m.
	ticks := makeRandomTicks(1000, 180, 42)

	stepped, recA, _ := newTestEngine(ticks, WithTimeframe(domain.Timeframe1m))
	for i := 0; i < len(ticks); i++ {
		stepped.Step()
	}
	rebuilt, recB, _ := newTestEngine(ticks, WithTimeframe(domain.Timeframe1m))
	rebuilt.SeekToProgress(1)

	require.Len(t, recA.lastCandles(), 3)
	assert.Equal(t, recA.lastCandles(), recB.lastCandles())
	assert.Equal(t, stepped.Candles(), rebuilt.Candles())
	assert.Equal(t, stepped.State(), rebuilt.State())

	total := 0
	for _, c := range stepped.Candles() {
		total += c.TickCount
	}
	assert.Equal(t, 1000, total)
}

func TestCandleBoundsInvariant(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		ticks := makeRandomTicks(500, 997, seed)
		e, _, _ := newTestEngine(ticks, WithTimeframe(domain.Timeframe5s))
		e.SeekToProgress(1)

		var lastTime int64 = -1
		for _, c := range e.Candles() {
			if c.Low > c.Open || c.Open > c.High || c.Low > c.Close || c.Close > c.High {
				t.Fatalf("seed %d: candle %+v violates low <= open,close <= high", seed, c)
			}
			if c.Time <= lastTime {
				t.Fatalf("seed %d: candle times not strictly increasing", seed)
			}
			lastTime = c.Time
		}
	}
}

func TestSeekIdempotent(t *testing.T) {
	ticks := makeRandomTicks(300, 1000, 7)
	e, rec, _ := newTestEngine(ticks, WithTimeframe(domain.Timeframe1m))

	e.SeekToProgress(0.25)
	firstCandles, firstState := rec.lastCandles(), rec.lastState()
	e.SeekToProgress(0.25)

	assert.Equal(t, firstCandles, rec.lastCandles())
	assert.Equal(t, firstState, rec.lastState())
	assert.Equal(t, 75, firstState.CurrentTickIndex)
}

func TestSeekClamps(t *testing.T) {
	ticks := makeTicks(1000, 1, 2, 3, 4)
	e, _, _ := newTestEngine(ticks)

	e.SeekToProgress(-0.5)
	assert.Equal(t, 0, e.State().CurrentTickIndex)

	e.SeekToProgress(7)
	assert.Equal(t, 4, e.State().CurrentTickIndex)
	assert.Equal(t, 1.0, e.State().Progress)
	assert.True(t, e.AtEnd())
}

func TestThreeMinuteCandles(t *testing.T) {
	ticks := []domain.Tick{
		{Timestamp: 0, Price: 100, Volume: 1},
		{Timestamp: 60_000, Price: 101, Volume: 1},
		{Timestamp: 120_000, Price: 99, Volume: 1},
	}
	e, _, _ := newTestEngine(ticks, WithTimeframe(domain.Timeframe1m))
	e.Step()
	e.Step()
	e.Step()

	want := []domain.Candle{
		{Time: 0, Open: 100, High: 100, Low: 100, Close: 100, Volume: 1, TickCount: 1},
		{Time: 60, Open: 101, High: 101, Low: 101, Close: 101, Volume: 1, TickCount: 1},
		{Time: 120, Open: 99, High: 99, Low: 99, Close: 99, Volume: 1, TickCount: 1},
	}
	assert.Equal(t, want, e.Candles())
	assert.Equal(t, int64(120_000), e.State().CurrentTime)
}

func TestStepEmitsInOrder(t *testing.T) {
	e, rec, _ := newTestEngine(makeTicks(1000, 1, 2))

	e.Step()

	assert.Equal(t, []string{"tick:0", "candles", "state"}, rec.events)
	assert.Equal(t, 1, rec.lastState().CurrentTickIndex)
	assert.Equal(t, 0.5, rec.lastState().Progress)
}

func TestStepAtEndIsNoop(t *testing.T) {
	e, rec, _ := newTestEngine(makeTicks(1000, 1))
	e.Step()
	rec.clear()

	e.Step()

	assert.Empty(t, rec.events)
}

func TestStepNEmitsOnce(t *testing.T) {
	e, rec, _ := newTestEngine(makeTicks(1000, 1, 2, 3, 4, 5))

	e.StepN(3)

	assert.Equal(t, []string{"tick:0", "tick:1", "tick:2", "candles", "state"}, rec.events)
	assert.Equal(t, 3, rec.lastState().CurrentTickIndex)

	rec.clear()
	e.StepN(10)
	assert.Equal(t, []int{3, 4}, rec.ticks)
	assert.True(t, e.AtEnd())

	rec.clear()
	e.StepN(1)
	e.StepN(0)
	assert.Empty(t, rec.events)
}

func TestStepNStopsOnResetInsideCallback(t *testing.T) {
	e, rec, _ := newTestEngine(makeTicks(1000, 1, 2, 3, 4, 5))
	rec.onTick = func(index int) {
		if index == 1 {
			e.Reset()
		}
	}

	e.StepN(5)

	assert.Equal(t, []int{0, 1}, rec.ticks)
	assert.Equal(t, 0, e.State().CurrentTickIndex)
}

func TestPlayProcessesBatchesPerFrame(t *testing.T) {
	ticks := makeRandomTicks(25, 1000, 3)
	e, rec, sched := newTestEngine(ticks, WithSpeed(10))

	e.Play()
	require.True(t, rec.lastState().IsPlaying)
	rec.clear()

	require.True(t, sched.RunNext())
	assert.Len(t, rec.ticks, 10)
	assert.Equal(t, "tick:9", rec.events[9])
	assert.Equal(t, []string{"candles", "state"}, rec.events[10:])

	frames := sched.Drain(0)
	assert.Equal(t, 2, frames)
	assert.Len(t, rec.ticks, 25)
	assert.Len(t, rec.candles, 3)
	assert.False(t, rec.lastState().IsPlaying)
	assert.Equal(t, 25, rec.lastState().CurrentTickIndex)
	assert.Equal(t, 0, sched.Pending())
}

func TestMaxSpeedFinishesInOneFrame(t *testing.T) {
	e, rec, sched := newTestEngine(makeTicks(1000, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10))
	e.Step()
	e.SetSpeed(math.MaxInt)
	e.Play()
	rec.clear()

	frames := sched.Drain(50)
	assert.Equal(t, 1, frames)
	assert.Len(t, rec.ticks, 9)
	assert.True(t, e.AtEnd())
	assert.False(t, e.State().IsPlaying)
	assert.Equal(t, 0, sched.Pending())
}

func TestStepNHugeCountClampsToRemaining(t *testing.T) {
	e, rec, _ := newTestEngine(makeTicks(1000, 1, 2, 3, 4, 5))
	e.Step()
	rec.clear()

	e.StepN(math.MaxInt)
	assert.Equal(t, []int{1, 2, 3, 4}, rec.ticks)
	assert.Equal(t, 5, e.State().CurrentTickIndex)
}

func TestPlayBatchedMatchesStepped(t *testing.T) {
	ticks := makeRandomTicks(777, 350, 11)

	played, recA, sched := newTestEngine(ticks, WithSpeed(50), WithTimeframe(domain.Timeframe15s))
	played.Play()
	sched.Drain(0)

	stepped, recB, _ := newTestEngine(ticks, WithTimeframe(domain.Timeframe15s))
	for !stepped.AtEnd() {
		stepped.Step()
	}

	assert.Equal(t, recB.ticks, recA.ticks)
	assert.Equal(t, stepped.Candles(), played.Candles())
}

func TestPauseCancelsPendingFrame(t *testing.T) {
	e, rec, sched := newTestEngine(makeRandomTicks(100, 1000, 5), WithSpeed(5))

	e.Play()
	e.Pause()
	rec.clear()

	assert.Equal(t, 0, sched.Drain(0))
	assert.Empty(t, rec.ticks)
	assert.False(t, e.State().IsPlaying)

	// idempotent
	e.Pause()
	assert.Empty(t, rec.events)
}

func TestPauseInsideTickCallbackStopsBatch(t *testing.T) {
	e, rec, sched := newTestEngine(makeRandomTicks(100, 1000, 5), WithSpeed(10))
	rec.onTick = func(index int) {
		if index == 3 {
			e.Pause()
		}
	}

	e.Play()
	sched.Drain(0)

	assert.Equal(t, []int{0, 1, 2, 3}, rec.ticks)
	assert.Equal(t, 4, e.State().CurrentTickIndex)
	assert.False(t, e.State().IsPlaying)
	assert.Equal(t, 0, sched.Pending())
}

func TestReentrantPlayDoesNotDoubleSchedule(t *testing.T) {
	e, rec, sched := newTestEngine(makeRandomTicks(30, 1000, 9), WithSpeed(5))
	rec.onTick = func(int) { e.Play() }

	e.Play()
	require.Equal(t, 1, sched.Pending())
	sched.RunNext()
	assert.Equal(t, 1, sched.Pending())

	sched.Drain(0)
	assert.Len(t, rec.ticks, 30)
}

func TestPauseAndPlayInsideCallbackKeepsSingleFrame(t *testing.T) {
	e, rec, sched := newTestEngine(makeRandomTicks(40, 1000, 9), WithSpeed(10))
	rec.onTick = func(index int) {
		if index == 2 {
			e.Pause()
			e.Play()
		}
	}

	e.Play()
	sched.RunNext()

	assert.Equal(t, []int{0, 1, 2}, rec.ticks)
	assert.Equal(t, 1, sched.Pending())
	sched.Drain(0)
	assert.Len(t, rec.ticks, 40)
}

func TestPlayAtEndIsNoop(t *testing.T) {
	e, rec, sched := newTestEngine(makeTicks(1000, 1, 2))
	e.SeekToProgress(1)
	rec.clear()

	e.Play()

	assert.Empty(t, rec.events)
	assert.Equal(t, 0, sched.Pending())
}

func TestSeekWhilePlayingResumes(t *testing.T) {
	e, _, sched := newTestEngine(makeRandomTicks(100, 1000, 1), WithSpeed(10))
	e.Play()

	e.SeekToProgress(0.5)

	assert.True(t, e.State().IsPlaying)
	assert.Equal(t, 50, e.State().CurrentTickIndex)
	assert.Equal(t, 1, sched.Pending())
	sched.RunNext()
	assert.Equal(t, 60, e.State().CurrentTickIndex)
}

func TestStepBackToCandleBoundaries(t *testing.T) {
	// 1m candles: ticks 0,1 -> bucket 0; 2,3 -> 60; 4 -> 120.
	e, _, _ := newTestEngine(makeTicks(30_000, 10, 11, 12, 13, 14), WithTimeframe(domain.Timeframe1m))
	for !e.AtEnd() {
		e.Step()
	}

	e.StepBack()
	assert.Equal(t, 4, e.State().CurrentTickIndex)
	assert.Len(t, e.Candles(), 2)

	e.StepBack()
	assert.Equal(t, 2, e.State().CurrentTickIndex)
	assert.Len(t, e.Candles(), 1)

	e.StepBack()
	assert.Equal(t, 0, e.State().CurrentTickIndex)
	assert.Empty(t, e.Candles())

	e.StepBack()
	assert.Equal(t, 0, e.State().CurrentTickIndex)
}

func TestStepBackReproducesForwardCandles(t *testing.T) {
	ticks := makeRandomTicks(400, 700, 21)
	e, _, _ := newTestEngine(ticks, WithTimeframe(domain.Timeframe1m))
	for i := 0; i < 300; i++ {
		e.Step()
	}
	e.StepBack()
	target := e.State().CurrentTickIndex

	fresh, _, _ := newTestEngine(ticks, WithTimeframe(domain.Timeframe1m))
	for i := 0; i < target; i++ {
		fresh.Step()
	}
	assert.Equal(t, fresh.Candles(), e.Candles())
}

func TestSetTimeframeRebuilds(t *testing.T) {
	ticks := makeRandomTicks(200, 1000, 4)
	e, rec, _ := newTestEngine(ticks, WithTimeframe(domain.Timeframe1m))
	e.SeekToProgress(0.5)
	require.Len(t, e.Candles(), 2)
	rec.clear()

	e.SetTimeframe(domain.Timeframe1m)
	assert.Empty(t, rec.events, "unchanged timeframe is a no-op")

	e.SetTimeframe(domain.Timeframe5s)
	assert.Len(t, e.Candles(), 20)
	assert.Equal(t, 100, e.State().CurrentTickIndex)
	assert.Equal(t, []string{"candles", "state"}, rec.events)
}

func TestSetSpeedEmitsStateOnly(t *testing.T) {
	e, rec, _ := newTestEngine(makeTicks(1000, 1, 2))

	e.SetSpeed(100)
	assert.Equal(t, []string{"state"}, rec.events)
	assert.Equal(t, 100, rec.lastState().Speed)

	e.SetSpeed(0)
	assert.Equal(t, 1, e.Speed())
}

func TestResetClearsCandles(t *testing.T) {
	e, rec, sched := newTestEngine(makeRandomTicks(50, 1000, 2), WithSpeed(10))
	e.Play()
	sched.RunNext()
	rec.clear()

	e.Reset()

	assert.Empty(t, rec.lastCandles())
	assert.Equal(t, domain.ReplayState{Speed: 10, TotalTicks: 50}, rec.lastState())
	assert.Equal(t, 0, sched.Drain(0))
}

func TestEmptyTicksAreNoop(t *testing.T) {
	e, rec, sched := newTestEngine(nil)

	e.Play()
	e.Step()
	e.StepBack()
	e.SeekToProgress(0.5)
	e.SetTimeframe(domain.Timeframe1h)
	e.SetSpeed(10)
	e.Reset()
	e.Pause()

	assert.Empty(t, rec.events)
	assert.Equal(t, 0, sched.Pending())
	assert.Equal(t, domain.ReplayState{Speed: 1}, e.State())
}

func TestLastTick(t *testing.T) {
	e, _, _ := newTestEngine(makeTicks(1000, 5, 6))
	_, _, ok := e.LastTick()
	assert.False(t, ok)

	e.Step()
	tick, idx, ok := e.LastTick()
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 5.0, tick.Price)
}
