package replay

import (
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs frame callbacks one at a time.
type Scheduler interface {
	// ScheduleFrame arranges for fn to run once at the next frame boundary.
	// Calling the returned cancel func before fn starts prevents it from running.
	ScheduleFrame(fn func()) (cancel func())
}

// DefaultFrameInterval approximates a 60Hz display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// TimerScheduler fires frames on wall-clock timers.
type TimerScheduler struct {
	interval time.Duration
}

// NewTimerScheduler creates a scheduler firing every interval.
// Non-positive intervals use DefaultFrameInterval.
func NewTimerScheduler(interval time.Duration) *TimerScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &TimerScheduler{interval: interval}
}

// ScheduleFrame implements Scheduler.
func (s *TimerScheduler) ScheduleFrame(fn func()) func() {
	var cancelled atomic.Bool
	t := time.AfterFunc(s.interval, func() {
		if cancelled.Load() {
			return
		}
		fn()
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}

// ManualScheduler queues frames until they are run explicitly.
// Used by tests and headless replay to drive playback as fast as possible.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []*manualFrame
}

type manualFrame struct {
	fn        func()
	cancelled bool
}

// NewManualScheduler creates an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// ScheduleFrame implements Scheduler.
func (s *ManualScheduler) ScheduleFrame(fn func()) func() {
	f := &manualFrame{fn: fn}
	s.mu.Lock()
	s.pending = append(s.pending, f)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		f.cancelled = true
		s.mu.Unlock()
	}
}

// Pending returns the number of queued, non-cancelled frames.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, f := range s.pending {
		if !f.cancelled {
			n++
		}
	}
	return n
}

// RunNext runs the oldest live frame. Returns false when nothing is queued.
func (s *ManualScheduler) RunNext() bool {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return false
		}
		f := s.pending[0]
		s.pending = s.pending[1:]
		cancelled := f.cancelled
		s.mu.Unlock()

		if cancelled {
			continue
		}
		f.fn()
		return true
	}
}

// Drain runs frames until the queue is empty or limit frames ran (limit <= 0 means no limit).
// Returns the number of frames run.
func (s *ManualScheduler) Drain(limit int) int {
	n := 0
	for limit <= 0 || n < limit {
		if !s.RunNext() {
			break
		}
		n++
	}
	return n
}
