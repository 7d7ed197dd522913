package domain

// TrailMode selects the trailing-stop policy.
type TrailMode string

// Trail modes.
const (
	TrailFixed TrailMode = "fixed"
	Trail1Step TrailMode = "1-step"
	Trail2Step TrailMode = "2-step"
	Trail3Step TrailMode = "3-step"
)

// StepCount returns how many trail steps the mode consumes before fixed trailing.
func (m TrailMode) StepCount() int {
	switch m {
	case Trail1Step:
		return 1
	case Trail2Step:
		return 2
	case Trail3Step:
		return 3
	default:
		return 0
	}
}

// Valid reports whether m is a known mode.
func (m TrailMode) Valid() bool {
	return m == TrailFixed || m.StepCount() > 0
}

// TrailStep moves the stop to entry+SLMove (long) once profit reaches Trigger points.
type TrailStep struct {
	Trigger float64 `json:"trigger"`
	SLMove  float64 `json:"sl_move"`
}

// OrderConfig holds the user's stop, target and trailing parameters.
type OrderConfig struct {
	SLEnabled    bool        `json:"sl_enabled"`
	TPEnabled    bool        `json:"tp_enabled"`
	TrailEnabled bool        `json:"trail_enabled"`
	SLPoints     float64     `json:"sl_points"`
	TPPoints     float64     `json:"tp_points"`
	TrailPoints  float64     `json:"trail_points"`
	TrailMode    TrailMode   `json:"trail_mode"`
	TrailSteps   []TrailStep `json:"trail_steps"`
}

// DefaultOrderConfig returns the configuration a session starts with.
func DefaultOrderConfig() OrderConfig {
	return OrderConfig{
		SLEnabled:   true,
		TPEnabled:   true,
		SLPoints:    20,
		TPPoints:    20,
		TrailPoints: 10,
		TrailMode:   TrailFixed,
		TrailSteps: []TrailStep{
			{Trigger: 10, SLMove: 0},
			{Trigger: 20, SLMove: 10},
			{Trigger: 30, SLMove: 20},
		},
	}
}

// ActiveSteps returns the steps consumed by the configured mode.
func (c OrderConfig) ActiveSteps() []TrailStep {
	n := c.TrailMode.StepCount()
	if n > len(c.TrailSteps) {
		n = len(c.TrailSteps)
	}
	return c.TrailSteps[:n]
}

// OrderConfigPatch is a partial OrderConfig update; nil fields are left unchanged.
type OrderConfigPatch struct {
	SLEnabled    *bool
	TPEnabled    *bool
	TrailEnabled *bool
	SLPoints     *float64
	TPPoints     *float64
	TrailPoints  *float64
	TrailMode    *TrailMode
	TrailSteps   []TrailStep // replaced when non-nil
}

// Apply returns c with the patch merged in.
func (p OrderConfigPatch) Apply(c OrderConfig) OrderConfig {
	if p.SLEnabled != nil {
		c.SLEnabled = *p.SLEnabled
	}
	if p.TPEnabled != nil {
		c.TPEnabled = *p.TPEnabled
	}
	if p.TrailEnabled != nil {
		c.TrailEnabled = *p.TrailEnabled
	}
	if p.SLPoints != nil {
		c.SLPoints = *p.SLPoints
	}
	if p.TPPoints != nil {
		c.TPPoints = *p.TPPoints
	}
	if p.TrailPoints != nil {
		c.TrailPoints = *p.TrailPoints
	}
	if p.TrailMode != nil && p.TrailMode.Valid() {
		c.TrailMode = *p.TrailMode
	}
	if p.TrailSteps != nil {
		c.TrailSteps = append([]TrailStep(nil), p.TrailSteps...)
	} else {
		c.TrailSteps = append([]TrailStep(nil), c.TrailSteps...)
	}
	return c
}

// RiskState is the stop/target/trailing state of the open position.
type RiskState struct {
	SLLevel        *float64 `json:"sl_level,omitempty"`
	TPLevel        *float64 `json:"tp_level,omitempty"`
	TrailBestPrice float64  `json:"trail_best_price"`
	TrailStepIndex int      `json:"trail_step_index"`
	TrailActive    bool     `json:"trail_active"`
}
