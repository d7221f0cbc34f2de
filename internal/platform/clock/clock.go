// Package clock provides the time source used by the reminder engine.
// Scheduling code never calls time.Now directly so that tests can pin
// the wall clock to an exact weekday and minute.
package clock

import (
	"sync"
	"time"
)

// weekdayCodes maps time.Weekday ordinals (Sunday = 0) to the short
// day codes stored on reminders.
var weekdayCodes = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Clock yields the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// New returns a Clock backed by the system wall clock.
func New() Clock { return systemClock{} }

// DayCode returns the short weekday code ("Sun" through "Sat") for t.
func DayCode(t time.Time) string {
	return weekdayCodes[int(t.Weekday())]
}

// HHMM renders t as a zero-padded 24-hour "HH:MM" string. Slot times on
// reminders use the same format, so two such strings compare
// chronologically under plain string ordering.
func HHMM(t time.Time) string {
	return t.Format("15:04")
}

// Fake is a manually advanced Clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake pinned to t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set pins the fake clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
