package replay

import (
	"math"
	"time"

	"tick-replay-lab/internal/domain"
)

// Listener receives engine events synchronously on the calling goroutine.
type Listener interface {
	// OnTick is called for each processed tick, after aggregation.
	OnTick(tick domain.Tick, index int)
	// OnCandles is called with a copy of the full candle set after a batch or discrete operation.
	OnCandles(candles []domain.Candle)
	// OnState is called after every state-changing operation.
	OnState(state domain.ReplayState)
}

// Rebuild reasons passed to the rebuild observer.
const (
	RebuildSeek      = "seek"
	RebuildStepBack  = "step_back"
	RebuildTimeframe = "timeframe"
)

// Option configures an Engine.
type Option func(*Engine)

// WithSpeed sets the initial ticks per frame.
func WithSpeed(speed int) Option {
	return func(e *Engine) { e.speed = clampSpeed(speed) }
}

// WithTimeframe sets the initial candle width.
func WithTimeframe(tf domain.Timeframe) Option {
	return func(e *Engine) { e.timeframe = tf }
}

// WithFrameObserver is called after each play frame with the batch size and duration.
func WithFrameObserver(fn func(ticks int, d time.Duration)) Option {
	return func(e *Engine) { e.onFrameDone = fn }
}

// WithRebuildObserver is called after each full candle rebuild.
func WithRebuildObserver(fn func(reason string, ticks int, d time.Duration)) Option {
	return func(e *Engine) { e.onRebuild = fn }
}

// Engine replays a tick sequence and aggregates it into candles.
// Engine is not safe for concurrent use; the caller serializes operations
// and frame callbacks (see session.Session).
type Engine struct {
	ticks     []domain.Tick
	listener  Listener
	scheduler Scheduler

	index     int
	speed     int
	timeframe domain.Timeframe
	agg       *aggregator

	playing    bool
	generation uint64
	cancel     func()

	onFrameDone func(int, time.Duration)
	onRebuild   func(string, int, time.Duration)
}

// NewEngine creates an engine over ticks, which must be sorted ascending and are never mutated.
// The initial (empty) candle set and state are emitted to listener.
func NewEngine(ticks []domain.Tick, listener Listener, scheduler Scheduler, opts ...Option) *Engine {
	e := &Engine{
		ticks:     ticks,
		listener:  listener,
		scheduler: scheduler,
		speed:     domain.DefaultSpeed,
		timeframe: domain.DefaultTimeframe,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.agg = newAggregator(e.timeframe.Seconds())
	e.emitCandles()
	e.emitState()
	return e
}

// Play starts frame-driven playback. No-op when already playing or at end of data.
func (e *Engine) Play() {
	if len(e.ticks) == 0 || e.playing || e.index >= len(e.ticks) {
		return
	}
	e.playing = true
	e.generation++
	e.emitState()
	e.scheduleFrame()
}

// Pause stops playback and cancels the pending frame. Idempotent.
func (e *Engine) Pause() {
	if len(e.ticks) == 0 {
		return
	}
	wasPlaying := e.playing
	e.stopPlayback()
	if wasPlaying {
		e.emitState()
	}
}

// Step processes exactly one tick. No-op at end of data.
func (e *Engine) Step() {
	if e.index >= len(e.ticks) {
		return
	}
	e.processTick()
	e.emitCandles()
	e.emitState()
}

// StepN processes up to n ticks as one batch with a single candle and state emission.
// No-op at end of data or for n < 1.
func (e *Engine) StepN(n int) {
	if n < 1 || e.index >= len(e.ticks) {
		return
	}
	end := e.index + min(n, len(e.ticks)-e.index)
	gen := e.generation
	// a tick callback may reset or seek
	for e.index < end && gen == e.generation {
		e.processTick()
	}
	if gen != e.generation {
		return
	}
	e.emitCandles()
	e.emitState()
}

// StepBack rewinds to the previous candle boundary and rebuilds candles.
func (e *Engine) StepBack() {
	if len(e.ticks) == 0 || e.index == 0 {
		return
	}
	target := e.agg.boundaryBefore(e.index)
	e.index = target
	e.rebuild(RebuildStepBack)
	e.emitCandles()
	e.emitState()
}

// SeekToProgress jumps to floor(pct*total), clamped, and rebuilds candles.
// Playback resumes afterwards if it was running.
func (e *Engine) SeekToProgress(pct float64) {
	if len(e.ticks) == 0 {
		return
	}
	wasPlaying := e.playing
	e.stopPlayback()

	e.index = e.targetIndex(pct)
	e.rebuild(RebuildSeek)
	e.emitCandles()
	e.emitState()

	if wasPlaying {
		e.Play()
	}
}

// SetTimeframe changes the bucket width and rebuilds up to the current index.
func (e *Engine) SetTimeframe(tf domain.Timeframe) {
	if len(e.ticks) == 0 || tf == e.timeframe {
		return
	}
	e.timeframe = tf
	e.agg = newAggregator(tf.Seconds())
	e.rebuild(RebuildTimeframe)
	e.emitCandles()
	e.emitState()
}

// SetSpeed changes ticks per frame. Values below 1 are clamped to 1.
func (e *Engine) SetSpeed(speed int) {
	if len(e.ticks) == 0 {
		return
	}
	e.speed = clampSpeed(speed)
	e.emitState()
}

// Reset returns to the first tick with an empty candle set.
func (e *Engine) Reset() {
	if len(e.ticks) == 0 {
		return
	}
	e.stopPlayback()
	e.index = 0
	e.agg.reset()
	e.emitCandles()
	e.emitState()
}

// State returns the current replay state.
func (e *Engine) State() domain.ReplayState {
	total := len(e.ticks)
	s := domain.ReplayState{
		IsPlaying:        e.playing,
		Speed:            e.speed,
		CurrentTickIndex: e.index,
		TotalTicks:       total,
	}
	if e.index > 0 {
		s.CurrentTime = e.ticks[e.index-1].Timestamp
	}
	if total > 0 {
		s.Progress = float64(e.index) / float64(total)
	}
	return s
}

// Candles returns a copy of the current candle set.
func (e *Engine) Candles() []domain.Candle {
	return e.agg.snapshot()
}

// Timeframe returns the current candle width.
func (e *Engine) Timeframe() domain.Timeframe {
	return e.timeframe
}

// Speed returns ticks per frame.
func (e *Engine) Speed() int {
	return e.speed
}

// LastTick returns the most recently processed tick.
func (e *Engine) LastTick() (domain.Tick, int, bool) {
	if e.index == 0 {
		return domain.Tick{}, 0, false
	}
	return e.ticks[e.index-1], e.index - 1, true
}

// AtEnd reports whether every tick has been processed.
func (e *Engine) AtEnd() bool {
	return e.index >= len(e.ticks)
}

func (e *Engine) scheduleFrame() {
	gen := e.generation
	e.cancel = e.scheduler.ScheduleFrame(func() { e.runFrame(gen) })
}

// runFrame processes up to speed ticks for playback generation gen.
// A frame whose generation is stale (pause, seek, replay restarted) does nothing.
func (e *Engine) runFrame(gen uint64) {
	if !e.playing || gen != e.generation {
		return
	}
	e.cancel = nil
	start := time.Now()

	processed := 0
	// clamp before adding so a huge speed cannot overflow
	end := e.index + min(e.speed, len(e.ticks)-e.index)
	// a tick callback may pause or restart playback
	for e.index < end && e.playing && gen == e.generation {
		e.processTick()
		processed++
	}

	if gen != e.generation {
		// paused or restarted inside a tick callback; state was already emitted there
		if processed > 0 {
			e.emitCandles()
		}
		return
	}
	if e.index >= len(e.ticks) {
		e.playing = false
	}
	e.emitCandles()
	e.emitState()
	if e.onFrameDone != nil {
		e.onFrameDone(processed, time.Since(start))
	}

	if e.playing && gen == e.generation {
		e.scheduleFrame()
	}
}

func (e *Engine) processTick() {
	tick := e.ticks[e.index]
	idx := e.index
	e.agg.add(tick, idx)
	e.index++
	e.listener.OnTick(tick, idx)
}

func (e *Engine) stopPlayback() {
	e.playing = false
	e.generation++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) rebuild(reason string) {
	start := time.Now()
	e.agg.rebuild(e.ticks, e.index)
	if e.onRebuild != nil {
		e.onRebuild(reason, e.index, time.Since(start))
	}
}

func (e *Engine) targetIndex(pct float64) int {
	total := len(e.ticks)
	if math.IsNaN(pct) || pct <= 0 {
		return 0
	}
	if pct >= 1 {
		return total
	}
	target := int(math.Floor(pct * float64(total)))
	if target > total {
		return total
	}
	return target
}

func (e *Engine) emitCandles() {
	e.listener.OnCandles(e.agg.snapshot())
}

func (e *Engine) emitState() {
	e.listener.OnState(e.State())
}

func clampSpeed(speed int) int {
	if speed < 1 {
		return 1
	}
	return speed
}
