package domain

// ReplayState is the playback snapshot emitted after every state-changing operation.
type ReplayState struct {
	IsPlaying        bool    `json:"is_playing"`
	Speed            int     `json:"speed"`              // ticks per frame
	CurrentTickIndex int     `json:"current_tick_index"` // next unprocessed tick
	TotalTicks       int     `json:"total_ticks"`
	CurrentTime      int64   `json:"current_time"` // ms of last processed tick, 0 before the first
	Progress         float64 `json:"progress"`     // CurrentTickIndex / TotalTicks
}

// SpeedPresets are the ticks-per-frame steps used by speed up/down.
var SpeedPresets = []int{1, 5, 10, 50, 100, 500, 1000}

// DefaultSpeed is the ticks-per-frame a session starts with.
const DefaultSpeed = 1

// NextSpeed returns the first preset above speed, or the largest preset.
func NextSpeed(speed int) int {
	for _, p := range SpeedPresets {
		if p > speed {
			return p
		}
	}
	return SpeedPresets[len(SpeedPresets)-1]
}

// PrevSpeed returns the last preset below speed, or the smallest preset.
func PrevSpeed(speed int) int {
	for i := len(SpeedPresets) - 1; i >= 0; i-- {
		if SpeedPresets[i] < speed {
			return SpeedPresets[i]
		}
	}
	return SpeedPresets[0]
}
