package tictactoe

import (
	"time"

	"github.com/jonboulle/clockwork"
)

const DefaultResetDelay = 5 * time.Second

// RoundScheduler holds at most one pending round reset. Every Arm starts a new generation;
// a timer may only act while its generation is still the armed one.
// Like the registry, it is guarded by the GameController mutex.
type RoundScheduler struct {
	clock clockwork.Clock
	delay time.Duration

	generation uint64
	armed      bool
	timer      clockwork.Timer
}

func NewRoundScheduler(clock clockwork.Clock, delay time.Duration) *RoundScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if delay <= 0 {
		delay = DefaultResetDelay
	}

	return &RoundScheduler{
		clock: clock,
		delay: delay,
	}
}

// Arm - cancels any pending reset and schedules fire with a fresh generation.
func (that *RoundScheduler) Arm(fire func(generation uint64)) uint64 {
	that.Cancel()

	that.generation++
	that.armed = true

	generation := that.generation
	that.timer = that.clock.AfterFunc(that.delay, func() {
		fire(generation)
	})

	return generation
}

// Claim - true exactly once for the armed generation, which is then spent.
func (that *RoundScheduler) Claim(generation uint64) bool {
	if !that.armed || generation != that.generation {
		return false
	}

	that.armed = false
	that.timer = nil

	return true
}

// Cancel - invalidates the pending generation and stops its timer.
func (that *RoundScheduler) Cancel() {
	if that.timer != nil {
		that.timer.Stop()
		that.timer = nil
	}

	that.armed = false
}

func (that *RoundScheduler) Pending() bool {
	return that.armed
}

func (that *RoundScheduler) Delay() time.Duration {
	return that.delay
}
