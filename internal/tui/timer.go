package tui

import (
	"time"

	"github.com/sadopc/rollday/internal/dates"
)

// timerState tracks the current state of the countdown.
type timerState int

const (
	timerStopped timerState = iota
	timerRunning
	timerPaused
	timerFinished
)

// timerModel is the activity countdown. It keeps the deadline rather than
// counting ticks, so a slow or missed tick never drifts the display.
type timerModel struct {
	clock dates.Clock

	state     timerState
	total     time.Duration
	endAt     time.Time
	remaining time.Duration // frozen while paused
}

func newTimerModel(clock dates.Clock) timerModel {
	return timerModel{clock: clock, state: timerStopped}
}

func (t *timerModel) start(d time.Duration) {
	if d <= 0 {
		return
	}
	t.state = timerRunning
	t.total = d
	t.remaining = d
	t.endAt = t.clock.Now().Add(d)
}

func (t *timerModel) pause() {
	if t.state != timerRunning {
		return
	}
	t.remaining = t.endAt.Sub(t.clock.Now())
	t.state = timerPaused
}

func (t *timerModel) resume() {
	if t.state != timerPaused {
		return
	}
	t.endAt = t.clock.Now().Add(t.remaining)
	t.state = timerRunning
}

func (t *timerModel) toggle() {
	switch t.state {
	case timerRunning:
		t.pause()
	case timerPaused:
		t.resume()
	}
}

func (t *timerModel) stop() {
	t.state = timerStopped
	t.remaining = 0
}

// tick refreshes the remaining time and reports whether the countdown ran
// out on this tick.
func (t *timerModel) tick() bool {
	if t.state != timerRunning {
		return false
	}
	t.remaining = t.endAt.Sub(t.clock.Now())
	if t.remaining <= 0 {
		t.remaining = 0
		t.state = timerFinished
		return true
	}
	return false
}

func (t timerModel) running() bool {
	return t.state == timerRunning || t.state == timerPaused
}

func (t timerModel) paused() bool {
	return t.state == timerPaused
}

func (t timerModel) finished() bool {
	return t.state == timerFinished
}

func (t timerModel) currentRemaining() time.Duration {
	switch t.state {
	case timerRunning:
		if r := t.endAt.Sub(t.clock.Now()); r > 0 {
			return r
		}
		return 0
	case timerPaused:
		return t.remaining
	}
	return 0
}
