package timer

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

const (
	stateIdle = iota
	stateActive
	stateExpired
)

// Timer runs a function once after a delay. Unlike time.AfterFunc it is
// created idle and only starts counting down when Start is called, and it
// can report whether it is still pending.
type Timer struct {
	t  *time.Timer
	fn func()

	l        *deadlock.Mutex // to synchronize access to the fields below
	state    int
	duration time.Duration
}

// AfterFunc returns an idle Timer that calls f in its own goroutine once
// duration d has elapsed after Start.
func AfterFunc(d time.Duration, f func()) *Timer {
	t := &Timer{
		duration: d,
		l:        new(deadlock.Mutex),
	}
	t.fn = func() {
		t.l.Lock()
		if t.state != stateActive {
			t.l.Unlock()
			return
		}
		t.state = stateExpired
		t.l.Unlock()
		f()
	}
	return t
}

// Start begins the countdown. It returns false if the timer was already
// started.
func (t *Timer) Start() bool {
	t.l.Lock()
	defer t.l.Unlock()
	if t.state != stateIdle {
		return false
	}
	t.state = stateActive
	t.t = time.AfterFunc(t.duration, t.fn)
	return true
}

// Pending is true between Start and the moment the function runs.
func (t *Timer) Pending() bool {
	t.l.Lock()
	defer t.l.Unlock()
	return t.state == stateActive
}

// Stop prevents the Timer from firing. It returns true if the call stops the timer,
// false if the timer has already expired or been stopped.
func (t *Timer) Stop() bool {
	t.l.Lock()
	defer t.l.Unlock()
	if t.state != stateActive {
		return false
	}
	t.state = stateExpired
	t.t.Stop()
	return true
}
