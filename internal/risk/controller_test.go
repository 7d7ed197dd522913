package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/trading"
)

func ptr[T any](v T) *T {
	return &v
}

// harness drives a trading engine and controller in per-tick order.
type harness struct {
	trader *trading.Engine
	ctrl   *Controller
	index  int
}

func newHarness(cfg domain.OrderConfig) *harness {
	return &harness{
		trader: trading.NewEngine(domain.NQInstrument()),
		ctrl:   NewController(cfg),
	}
}

func (h *harness) buy(price float64) {
	fill := h.trader.Buy(price, 1, int64(h.index), h.index)
	h.ctrl.Arm(fill.Position)
}

func (h *harness) sell(price float64) {
	fill := h.trader.Sell(price, 1, int64(h.index), h.index)
	h.ctrl.Arm(fill.Position)
}

func (h *harness) tick(price float64) TickResult {
	h.index++
	h.trader.UpdateUnrealizedPnl(price)
	return h.ctrl.OnTick(price, int64(h.index)*1000, h.index, h.trader)
}

func fixedTrail(points float64) domain.OrderConfig {
	return domain.OrderConfig{
		TrailEnabled: true,
		TrailPoints:  points,
		TrailMode:    domain.TrailFixed,
	}
}

func TestArmSetsLevels(t *testing.T) {
	cfg := domain.DefaultOrderConfig()
	h := newHarness(cfg)

	h.buy(100)
	st, ok := h.ctrl.State()
	require.True(t, ok)
	assert.Equal(t, 80.0, *st.SLLevel)
	assert.Equal(t, 120.0, *st.TPLevel)
	assert.Equal(t, 100.0, st.TrailBestPrice)
	assert.Equal(t, 0, st.TrailStepIndex)
	assert.True(t, st.TrailActive)

	h.trader.Flatten(100, 0, 0)
	h.ctrl.Disarm()
	h.sell(100)
	levels := h.ctrl.Levels()
	assert.Equal(t, 120.0, *levels.SL)
	assert.Equal(t, 80.0, *levels.TP)
}

func TestArmRespectsDisabledLevels(t *testing.T) {
	h := newHarness(domain.OrderConfig{TrailMode: domain.Trail2Step})
	h.buy(100)

	st, ok := h.ctrl.State()
	require.True(t, ok)
	assert.Nil(t, st.SLLevel)
	assert.Nil(t, st.TPLevel)
	assert.False(t, st.TrailActive)
}

func TestFixedTrailMonotonic(t *testing.T) {
	h := newHarness(fixedTrail(10))
	h.buy(100)

	var stops []float64
	for _, p := range []float64{100, 105, 110, 108, 112} {
		res := h.tick(p)
		require.Nil(t, res.Exit)
		stops = append(stops, *h.ctrl.Levels().SL)
	}

	assert.Equal(t, []float64{90, 95, 100, 100, 102}, stops)
	for i := 1; i < len(stops); i++ {
		assert.GreaterOrEqual(t, stops[i], stops[i-1])
	}
}

func TestFixedTrailNeverLoosensInitialStop(t *testing.T) {
	cfg := fixedTrail(10)
	cfg.SLEnabled = true
	cfg.SLPoints = 5
	h := newHarness(cfg)
	h.buy(100)

	res := h.tick(101)
	assert.False(t, res.LevelsChanged)
	assert.Equal(t, 95.0, *h.ctrl.Levels().SL)

	res = h.tick(106)
	assert.True(t, res.LevelsChanged)
	assert.Equal(t, 96.0, *h.ctrl.Levels().SL)
}

func TestShortFixedTrail(t *testing.T) {
	h := newHarness(fixedTrail(4))
	h.sell(100)

	h.tick(98)
	assert.Equal(t, 102.0, *h.ctrl.Levels().SL)
	h.tick(95)
	assert.Equal(t, 99.0, *h.ctrl.Levels().SL)
	h.tick(97)
	assert.Equal(t, 99.0, *h.ctrl.Levels().SL)

	res := h.tick(99.5)
	require.NotNil(t, res.Exit)
	assert.Equal(t, domain.ExitReasonStopLoss, res.Exit.Reason)
	assert.Equal(t, 99.0, res.Exit.Fill.Trade.Price)
	assert.Equal(t, 20.0, *res.Exit.Fill.Trade.Pnl)
}

func TestTakeProfitFillsAtLevel(t *testing.T) {
	cfg := domain.OrderConfig{SLEnabled: true, SLPoints: 5, TPEnabled: true, TPPoints: 10, TrailMode: domain.TrailFixed}
	h := newHarness(cfg)
	h.buy(100)

	exits := 0
	var exit *Exit
	for _, p := range []float64{101, 104, 111.5, 94, 90} {
		if res := h.tick(p); res.Exit != nil {
			exits++
			exit = res.Exit
		}
	}

	require.Equal(t, 1, exits)
	assert.Equal(t, domain.ExitReasonTakeProfit, exit.Reason)
	assert.Equal(t, 110.0, exit.Level)
	assert.Equal(t, 110.0, exit.Fill.Trade.Price)
	assert.Equal(t, 200.0, *exit.Fill.Trade.Pnl)
	assert.Equal(t, domain.ExitReasonTakeProfit, exit.Fill.RoundTrip.ExitReason)

	assert.False(t, h.ctrl.Armed())
	assert.Equal(t, Levels{}, h.ctrl.Levels())
	assert.True(t, h.trader.Position().IsFlat())
}

func TestStopLossFillsAtLevel(t *testing.T) {
	cfg := domain.OrderConfig{SLEnabled: true, SLPoints: 5, TPEnabled: true, TPPoints: 10, TrailMode: domain.TrailFixed}
	h := newHarness(cfg)
	h.buy(100)

	h.tick(97)
	res := h.tick(93)

	require.NotNil(t, res.Exit)
	assert.Equal(t, 95.0, res.Exit.Fill.Trade.Price)
	assert.Equal(t, -100.0, *res.Exit.Fill.Trade.Pnl)
}

func TestStepTrail(t *testing.T) {
	cfg := domain.OrderConfig{
		SLEnabled:    true,
		SLPoints:     20,
		TrailEnabled: true,
		TrailPoints:  5,
		TrailMode:    domain.Trail2Step,
		TrailSteps: []domain.TrailStep{
			{Trigger: 10, SLMove: 0},
			{Trigger: 20, SLMove: 10},
			{Trigger: 30, SLMove: 20},
		},
	}
	h := newHarness(cfg)
	h.buy(100)

	h.tick(105)
	st, _ := h.ctrl.State()
	assert.Equal(t, 80.0, *st.SLLevel)
	assert.Equal(t, 0, st.TrailStepIndex)

	h.tick(110) // step 1: breakeven
	st, _ = h.ctrl.State()
	assert.Equal(t, 100.0, *st.SLLevel)
	assert.Equal(t, 1, st.TrailStepIndex)
	assert.False(t, st.TrailActive)

	h.tick(115)
	st, _ = h.ctrl.State()
	assert.Equal(t, 100.0, *st.SLLevel, "stop holds between steps")

	h.tick(120) // step 2 then fixed trailing from best
	st, _ = h.ctrl.State()
	assert.Equal(t, 2, st.TrailStepIndex)
	assert.True(t, st.TrailActive)
	assert.Equal(t, 115.0, *st.SLLevel)

	h.tick(123)
	st, _ = h.ctrl.State()
	assert.Equal(t, 118.0, *st.SLLevel)
}

func TestStepTrailGapConsumesSeveralSteps(t *testing.T) {
	cfg := domain.OrderConfig{
		TrailEnabled: true,
		TrailPoints:  50,
		TrailMode:    domain.Trail3Step,
		TrailSteps: []domain.TrailStep{
			{Trigger: 10, SLMove: 0},
			{Trigger: 20, SLMove: 10},
			{Trigger: 30, SLMove: 20},
		},
	}
	h := newHarness(cfg)
	h.buy(100)

	h.tick(125)
	st, _ := h.ctrl.State()
	assert.Equal(t, 2, st.TrailStepIndex)
	assert.Equal(t, 110.0, *st.SLLevel)
}

func TestStepNeverLoosensStop(t *testing.T) {
	cfg := domain.OrderConfig{
		SLEnabled:    true,
		SLPoints:     -5, // stop already above entry
		TrailEnabled: true,
		TrailMode:    domain.Trail1Step,
		TrailSteps:   []domain.TrailStep{{Trigger: 10, SLMove: 0}},
		TrailPoints:  100,
	}
	h := newHarness(cfg)
	h.buy(100)
	require.Equal(t, 105.0, *h.ctrl.Levels().SL)

	res := h.tick(110)
	assert.Nil(t, res.Exit)
	assert.Equal(t, 105.0, *h.ctrl.Levels().SL)
}

func TestTrailDisabledKeepsStaticLevels(t *testing.T) {
	cfg := domain.DefaultOrderConfig()
	h := newHarness(cfg)
	h.buy(100)

	res := h.tick(115)
	assert.False(t, res.LevelsChanged)
	assert.Equal(t, 80.0, *h.ctrl.Levels().SL)
}

func TestOnTickWithoutPosition(t *testing.T) {
	h := newHarness(domain.DefaultOrderConfig())
	res := h.tick(100)
	assert.Equal(t, TickResult{}, res)

	// position closed behind the controller's back
	h.buy(100)
	h.trader.Flatten(101, 0, 0)
	res = h.tick(50)
	assert.Nil(t, res.Exit)
	assert.False(t, h.ctrl.Armed())
}

func TestUpdateConfigPartial(t *testing.T) {
	ctrl := NewController(domain.DefaultOrderConfig())
	cfg := ctrl.UpdateConfig(domain.OrderConfigPatch{SLPoints: ptr(8.0), TrailEnabled: ptr(true)})

	assert.Equal(t, 8.0, cfg.SLPoints)
	assert.True(t, cfg.TrailEnabled)
	assert.Equal(t, 20.0, cfg.TPPoints)

	ctrl.Arm(domain.Position{Side: domain.SideLong, EntryPrice: 100, Size: 1})
	assert.Equal(t, 92.0, *ctrl.Levels().SL)
}

func TestStateReturnsCopies(t *testing.T) {
	ctrl := NewController(domain.DefaultOrderConfig())
	ctrl.Arm(domain.Position{Side: domain.SideLong, EntryPrice: 100, Size: 1})

	st, _ := ctrl.State()
	*st.SLLevel = 1
	assert.Equal(t, 80.0, *ctrl.Levels().SL)
}
