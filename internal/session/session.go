// Package session runs one replay simulation: the replay engine, the trading
// engine and the risk controller advancing on a single clock, serialized by
// one lock, with every change published to a single Listener.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/indicator"
	"tick-replay-lab/internal/metrics"
	"tick-replay-lab/internal/observability"
	"tick-replay-lab/internal/replay"
	"tick-replay-lab/internal/risk"
	"tick-replay-lab/internal/trading"
)

// DefaultStepForward is the tick count StepForward uses for n < 1.
const DefaultStepForward = 10

// Options for creating a Session.
type Options struct {
	Ticks      []domain.Tick // sorted ascending; see replay.SortTicks
	DatasetID  string
	Instrument domain.InstrumentConfig // zero value uses NQ
	// OrderConfig nil uses domain.DefaultOrderConfig.
	OrderConfig *domain.OrderConfig
	Timeframe   domain.Timeframe // empty uses domain.DefaultTimeframe
	Speed       int              // < 1 uses domain.DefaultSpeed
	// Indicators nil uses domain.DefaultIndicators.
	Indicators []domain.IndicatorConfig
	// Scheduler nil uses a replay.TimerScheduler at the default frame interval.
	Scheduler replay.Scheduler
	Listener  Listener
	Logger    *zap.Logger
}

// dirty flags select the events flushed after a batch.
type dirty uint8

const (
	dirtyTick dirty = 1 << iota
	dirtyPosition
	dirtyLevels
	dirtyLedger
	dirtyMarkers
)

const dirtyAll = dirtyTick | dirtyPosition | dirtyLevels | dirtyLedger | dirtyMarkers

// Session is the single active simulation. All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id        string
	datasetID string
	log       *zap.Logger
	listener  Listener

	replay *replay.Engine
	trader *trading.Engine
	risk   *risk.Controller

	indicators      []domain.IndicatorConfig
	indicatorValues map[string][]domain.IndicatorValue

	candles  []domain.Candle
	state    domain.ReplayState
	markers  []Marker
	lastTick TickEvent
	hasTick  bool
	pending  dirty
}

// New builds a session and emits the initial candles and state.
func New(opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	instrument := opts.Instrument
	if instrument.PointValue == 0 {
		instrument = domain.NQInstrument()
	}
	orderCfg := domain.DefaultOrderConfig()
	if opts.OrderConfig != nil {
		orderCfg = *opts.OrderConfig
	}
	tf := opts.Timeframe
	if tf == "" {
		tf = domain.DefaultTimeframe
	}
	if _, err := domain.ParseTimeframe(string(tf)); err != nil {
		return nil, err
	}
	speed := opts.Speed
	if speed < 1 {
		speed = domain.DefaultSpeed
	}
	inds := opts.Indicators
	if inds == nil {
		inds = domain.DefaultIndicators()
	}
	for _, cfg := range inds {
		if err := indicator.Validate(cfg); err != nil {
			return nil, fmt.Errorf("indicator %s: %w", cfg.ID, err)
		}
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = replay.NewTimerScheduler(replay.DefaultFrameInterval)
	}
	listener := opts.Listener
	if listener == nil {
		listener = ListenerFunc(func(Event) {})
	}

	s := &Session{
		id:         uuid.NewString(),
		datasetID:  opts.DatasetID,
		listener:   listener,
		trader:     trading.NewEngine(instrument),
		risk:       risk.NewController(orderCfg),
		indicators: append([]domain.IndicatorConfig(nil), inds...),
	}
	s.log = log.With(zap.String("session_id", s.id), zap.String("dataset_id", opts.DatasetID))

	s.replay = replay.NewEngine(opts.Ticks, replayListener{s}, lockedScheduler{inner: sched, mu: &s.mu},
		replay.WithSpeed(speed),
		replay.WithTimeframe(tf),
		replay.WithFrameObserver(observability.RecordFrame),
		replay.WithRebuildObserver(func(reason string, ticks int, d time.Duration) {
			observability.RecordRebuild(reason, d)
			s.log.Debug("candles rebuilt", zap.String("reason", reason), zap.Int("ticks", ticks), zap.Duration("took", d))
		}),
	)
	s.log.Info("session created", zap.Int("ticks", len(opts.Ticks)), zap.String("timeframe", string(tf)))
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Close stops playback.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replay.Pause()
}

// Play starts frame-driven playback.
func (s *Session) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replay.Play()
}

// Pause stops playback.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replay.Pause()
}

// TogglePlay pauses when playing and plays otherwise.
func (s *Session) TogglePlay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsPlaying {
		s.replay.Pause()
		return
	}
	s.replay.Play()
}

// Step processes one tick.
func (s *Session) Step() {
	s.StepForward(1)
}

// StepForward processes n ticks as one batch; n < 1 uses DefaultStepForward.
func (s *Session) StepForward(n int) {
	if n < 1 {
		n = DefaultStepForward
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.replay.State().CurrentTickIndex
	if n == 1 {
		s.replay.Step()
	} else {
		s.replay.StepN(n)
	}
	if done := s.replay.State().CurrentTickIndex - before; done > 0 {
		observability.RecordStep(done)
	}
}

// StepBack rewinds to the previous candle boundary. Trading state is not rewound.
func (s *Session) StepBack() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replay.StepBack()
}

// SeekToProgress jumps to a fraction of the tick stream. Trading state is not rewound.
func (s *Session) SeekToProgress(pct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replay.SeekToProgress(pct)
}

// SetSpeed sets ticks per frame, clamped to >= 1.
func (s *Session) SetSpeed(speed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replay.SetSpeed(speed)
}

// SpeedUp moves to the next speed preset.
func (s *Session) SpeedUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replay.SetSpeed(domain.NextSpeed(s.replay.Speed()))
}

// SpeedDown moves to the previous speed preset.
func (s *Session) SpeedDown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replay.SetSpeed(domain.PrevSpeed(s.replay.Speed()))
}

// SetTimeframe parses tf and rebuilds candles at the new width.
func (s *Session) SetTimeframe(tf string) error {
	parsed, err := domain.ParseTimeframe(tf)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replay.SetTimeframe(parsed)
	return nil
}

// Reset rewinds replay to the start and clears the position, ledgers and markers.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trader.Reset()
	s.risk.Disarm()
	s.markers = nil
	s.hasTick = false
	s.pending |= dirtyAll &^ dirtyTick
	s.replay.Reset()
	observability.UpdatePosition(0, 0)
	s.log.Info("session reset")
}

// Buy fills a buy of size at the last processed tick.
// Before the first tick it does nothing.
func (s *Session) Buy(size int) error {
	return s.order(domain.OrderBuy, size)
}

// Sell fills a sell of size at the last processed tick.
// Before the first tick it does nothing.
func (s *Session) Sell(size int) error {
	return s.order(domain.OrderSell, size)
}

// Flatten closes the open position at the last processed tick.
func (s *Session) Flatten() {
	s.mu.Lock()
	defer s.mu.Unlock()

	tick, idx, ok := s.replay.LastTick()
	if !ok {
		return
	}
	closingSide := closingSideOf(s.trader.Position().Side)
	fill, ok := s.trader.Flatten(tick.Price, tick.Timestamp, idx)
	if !ok {
		return
	}
	s.applyFill(closingSide, fill, tick)
	s.flush()
}

// UpdateOrderConfig merges patch into the order configuration.
func (s *Session) UpdateOrderConfig(patch domain.OrderConfigPatch) domain.OrderConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.risk.UpdateConfig(patch)
	s.emit(EventOrderConfig, cfg)
	return cfg
}

// SetIndicators replaces the indicator set and recomputes every series.
func (s *Session) SetIndicators(cfgs []domain.IndicatorConfig) error {
	for _, cfg := range cfgs {
		if err := indicator.Validate(cfg); err != nil {
			return fmt.Errorf("indicator %s: %w", cfg.ID, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.indicators = append([]domain.IndicatorConfig(nil), cfgs...)
	s.recomputeIndicators()
	s.emit(EventIndicators, s.indicatorValues)
	return nil
}

func (s *Session) order(side domain.OrderSide, size int) error {
	if size < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidOrderSize, size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tick, idx, ok := s.replay.LastTick()
	if !ok {
		s.log.Debug("order ignored before first tick", zap.String("side", string(side)))
		return nil
	}
	var fill trading.Fill
	if side == domain.OrderBuy {
		fill = s.trader.Buy(tick.Price, size, tick.Timestamp, idx)
	} else {
		fill = s.trader.Sell(tick.Price, size, tick.Timestamp, idx)
	}
	s.applyFill(side, fill, tick)
	s.flush()
	return nil
}

// applyFill re-arms or disarms risk and records the marker for a manual fill.
func (s *Session) applyFill(side domain.OrderSide, fill trading.Fill, tick domain.Tick) {
	kind := MarkerEntry
	switch fill.Action {
	case trading.ActionOpen, trading.ActionAdd:
		s.risk.Arm(fill.Position)
	case trading.ActionClose:
		s.risk.Disarm()
		kind = MarkerExit
		observability.RecordRoundTrip()
	}
	s.addMarker(side, fill.Trade.Price, kind, tick)
	s.pending |= dirtyPosition | dirtyLevels | dirtyLedger | dirtyMarkers

	observability.RecordFill(string(side), string(fill.Action))
	s.publishPositionMetrics()
	s.log.Info("order filled",
		zap.String("side", string(side)),
		zap.String("action", string(fill.Action)),
		zap.Float64("price", fill.Trade.Price),
		zap.Int("size", fill.Trade.Size),
		zap.Int("tick_index", fill.Trade.TickIndex),
	)
}

// onTick runs the per-tick trading pipeline: mark to market, then risk.
func (s *Session) onTick(tick domain.Tick, idx int) {
	s.lastTick = TickEvent{Tick: tick, Index: idx}
	s.hasTick = true
	s.pending |= dirtyTick

	if s.trader.Position().IsFlat() {
		return
	}
	s.trader.UpdateUnrealizedPnl(tick.Price)
	s.pending |= dirtyPosition

	res := s.risk.OnTick(tick.Price, tick.Timestamp, idx, s.trader)
	if res.LevelsChanged {
		s.pending |= dirtyLevels
	}
	if res.Exit != nil {
		s.onAutoExit(res.Exit, tick)
	}
}

func (s *Session) onAutoExit(exit *risk.Exit, tick domain.Tick) {
	kind := MarkerStop
	if exit.Reason == domain.ExitReasonTakeProfit {
		kind = MarkerTarget
	}
	s.addMarker(exit.Fill.Trade.Side, exit.Level, kind, tick)
	s.pending |= dirtyPosition | dirtyLevels | dirtyLedger | dirtyMarkers

	payload := AutoExitEvent{Reason: exit.Reason, Level: exit.Level, Trade: exit.Fill.Trade}
	if exit.Fill.RoundTrip != nil {
		payload.Trip = *exit.Fill.RoundTrip
	}
	s.emit(EventAutoExit, payload)

	observability.RecordAutoExit(exit.Reason)
	observability.RecordRoundTrip()
	s.publishPositionMetrics()
	s.log.Info("position closed by risk",
		zap.String("reason", exit.Reason),
		zap.Float64("level", exit.Level),
		zap.Float64("pnl", payload.Trip.Pnl),
		zap.Int("tick_index", exit.Fill.Trade.TickIndex),
	)
}

func (s *Session) onCandles(candles []domain.Candle) {
	s.candles = candles
	s.flush()
	s.emit(EventCandles, candles)
	s.recomputeIndicators()
	s.emit(EventIndicators, s.indicatorValues)
}

func (s *Session) onState(state domain.ReplayState) {
	s.state = state
	s.emit(EventState, state)
}

// flush emits the events marked dirty since the last flush.
func (s *Session) flush() {
	p := s.pending
	s.pending = 0
	if p&dirtyTick != 0 && s.hasTick {
		s.emit(EventLastTick, s.lastTick)
	}
	if p&dirtyPosition != 0 {
		s.emit(EventPosition, s.trader.Position())
	}
	if p&dirtyLevels != 0 {
		s.emit(EventPriceLines, priceLines(s.trader.Position(), s.risk.Levels()))
	}
	if p&dirtyLedger != 0 {
		s.emit(EventTrades, s.trader.Trades())
		s.emit(EventRoundTrips, s.trader.RoundTrips())
		s.emit(EventStats, s.statsEvent())
	}
	if p&dirtyMarkers != 0 {
		s.emit(EventMarkers, s.markersCopy())
	}
}

func (s *Session) recomputeIndicators() {
	values, err := indicator.ComputeAll(s.candles, s.indicators)
	if err != nil {
		// configs are validated on entry
		s.log.Error("indicator computation failed", zap.Error(err))
		return
	}
	s.indicatorValues = values
}

func (s *Session) statsEvent() StatsEvent {
	stats := s.trader.Stats()
	return StatsEvent{Stats: stats, Analytics: metrics.Analyze(stats, s.trader.RoundTrips())}
}

func (s *Session) addMarker(side domain.OrderSide, price float64, kind string, tick domain.Tick) {
	s.markers = append(s.markers, Marker{
		Time:  domain.BucketTime(tick.Timestamp, s.replay.Timeframe().Seconds()),
		Side:  side,
		Price: price,
		Kind:  kind,
	})
}

func (s *Session) markersCopy() []Marker {
	out := make([]Marker, len(s.markers))
	copy(out, s.markers)
	return out
}

func (s *Session) publishPositionMetrics() {
	pos := s.trader.Position()
	observability.UpdatePosition(int(pos.Side.Direction())*pos.Size, s.trader.Stats().RealizedPnl)
}

func (s *Session) emit(t EventType, data any) {
	s.listener.OnEvent(Event{Type: t, Data: data})
}

func closingSideOf(side domain.PositionSide) domain.OrderSide {
	if side == domain.SideShort {
		return domain.OrderBuy
	}
	return domain.OrderSell
}

// replayListener adapts replay engine callbacks to the session. It runs with s.mu held.
type replayListener struct{ s *Session }

func (l replayListener) OnTick(tick domain.Tick, index int) { l.s.onTick(tick, index) }
func (l replayListener) OnCandles(candles []domain.Candle)  { l.s.onCandles(candles) }
func (l replayListener) OnState(state domain.ReplayState)   { l.s.onState(state) }

// lockedScheduler runs every frame with the session lock held.
type lockedScheduler struct {
	inner replay.Scheduler
	mu    *sync.Mutex
}

func (l lockedScheduler) ScheduleFrame(fn func()) func() {
	return l.inner.ScheduleFrame(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		fn()
	})
}
