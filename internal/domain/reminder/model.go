// Package reminder implements recurring medication reminders: the data
// model, next-occurrence computation, and the persistence contract with
// its atomic per-slot completion update.
package reminder

import (
	"regexp"
	"time"
)

// Weekday codes used as map keys on completion state, Sunday first to
// match time.Weekday ordinals.
var WeekdayCodes = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

var timePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// ValidTime reports whether s is a zero-padded 24-hour "HH:MM" string.
// Slot times in this format compare chronologically under plain string
// ordering, which the recurrence scan relies on.
func ValidTime(s string) bool {
	return timePattern.MatchString(s)
}

// IsWeekdayCode reports whether s is one of the seven short day codes.
func IsWeekdayCode(s string) bool {
	for _, c := range WeekdayCodes {
		if c == s {
			return true
		}
	}
	return false
}

// TimeSlot is a (time-of-day, dose) pair within a reminder. Completion is
// tracked per weekday; a flag set true for a weekday is never reset to
// false by any operation.
type TimeSlot struct {
	Time      string          `json:"time" bson:"time"`
	Dose      int             `json:"dose" bson:"dose"`
	Completed map[string]bool `json:"completed" bson:"completed"`
}

// CompletedOn reports whether the slot is completed for the given weekday.
func (s *TimeSlot) CompletedOn(day string) bool {
	return s.Completed[day]
}

// Reminder is a recurring medication schedule: a weekly day set and one or
// more time slots.
//
// Completed is the per-weekday aggregate (true iff every slot is completed
// for that weekday). It is derived from the slots on read and is never
// persisted, so there is only one source of truth for completion state.
type Reminder struct {
	ID          string          `json:"_id" bson:"_id"`
	Owner       string          `json:"username" bson:"username"`
	Name        string          `json:"name" bson:"name"`
	Description string          `json:"description" bson:"description"`
	Days        []string        `json:"days" bson:"days"`
	Times       []TimeSlot      `json:"times" bson:"times"`
	TotalDoses  int             `json:"totalDoses" bson:"totalDoses"`
	Completed   map[string]bool `json:"completed" bson:"-"`
	CreatedAt   time.Time       `json:"createdAt" bson:"createdAt"`
}

// HasDay reports whether the reminder is scheduled on the given weekday.
func (r *Reminder) HasDay(day string) bool {
	for _, d := range r.Days {
		if d == day {
			return true
		}
	}
	return false
}

// SlotIndex returns the index of the slot with an exact time match, or -1.
func (r *Reminder) SlotIndex(timeStr string) int {
	for i := range r.Times {
		if r.Times[i].Time == timeStr {
			return i
		}
	}
	return -1
}

// AllSlotsCompleted reports whether every slot is completed for the given
// weekday. A reminder with no slots is never considered completed.
func (r *Reminder) AllSlotsCompleted(day string) bool {
	if len(r.Times) == 0 {
		return false
	}
	for i := range r.Times {
		if !r.Times[i].CompletedOn(day) {
			return false
		}
	}
	return true
}

// RefreshCompleted recomputes the per-weekday aggregate from the slots.
// Repositories call this after every read so the wire form always carries
// a consistent aggregate.
func (r *Reminder) RefreshCompleted() {
	completed := make(map[string]bool, len(r.Days))
	for _, day := range r.Days {
		completed[day] = r.AllSlotsCompleted(day)
	}
	r.Completed = completed
}

// InitCompletion resets every slot's completion map to false for each of
// the reminder's days. Called once at creation.
func (r *Reminder) InitCompletion() {
	for i := range r.Times {
		m := make(map[string]bool, len(r.Days))
		for _, day := range r.Days {
			m[day] = false
		}
		r.Times[i].Completed = m
	}
	r.RefreshCompleted()
}
