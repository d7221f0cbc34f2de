package reminder

import (
	"sort"
	"strconv"
	"time"

	"github.com/medicare/medicare/internal/platform/clock"
)

// Occurrence is a concrete upcoming dose: the weekday and slot it came
// from plus the absolute timestamp it is due.
type Occurrence struct {
	Day  string    `json:"day"`
	Time string    `json:"time"`
	Dose int       `json:"dose"`
	At   time.Time `json:"at"`
}

// Closest pairs a reminder with its earliest upcoming slot timestamp.
type Closest struct {
	Reminder *Reminder
	At       time.Time
}

// NextOccurrence returns the next due occurrence for a single reminder
// within the coming seven days, or nil if none exists.
//
// The scan walks today plus the next six days. For today only slots that
// are not yet completed and whose time is still ahead of the clock
// qualify; for later days every slot qualifies, since doses cannot be
// pre-completed. Slots with malformed times are skipped. The first day
// with any candidate wins, and within that day the earliest time wins.
func NextOccurrence(r *Reminder, now time.Time) *Occurrence {
	nowHHMM := clock.HHMM(now)

	for i := 0; i <= 6; i++ {
		dayStart := now.AddDate(0, 0, i)
		day := clock.DayCode(dayStart)
		if !r.HasDay(day) {
			continue
		}

		var candidates []TimeSlot
		for _, slot := range r.Times {
			if !ValidTime(slot.Time) {
				continue
			}
			if i == 0 && (slot.CompletedOn(day) || slot.Time <= nowHHMM) {
				continue
			}
			candidates = append(candidates, slot)
		}
		if len(candidates) == 0 {
			continue
		}

		sort.Slice(candidates, func(a, b int) bool {
			return candidates[a].Time < candidates[b].Time
		})
		first := candidates[0]
		return &Occurrence{
			Day:  day,
			Time: first.Time,
			Dose: first.Dose,
			At:   slotTimestamp(dayStart, first.Time),
		}
	}

	return nil
}

// ClosestOccurrence returns the reminder with the globally earliest slot
// timestamp strictly after now, or nil when no reminder has an upcoming
// slot within seven days. Unlike NextOccurrence it evaluates every day
// and slot of every reminder, because the minimum may lie on a later day
// of one reminder than the first match of another.
func ClosestOccurrence(reminders []*Reminder, now time.Time) *Closest {
	var best *Closest

	for _, r := range reminders {
		for i := 0; i <= 6; i++ {
			dayStart := now.AddDate(0, 0, i)
			day := clock.DayCode(dayStart)
			if !r.HasDay(day) {
				continue
			}
			for _, slot := range r.Times {
				if !ValidTime(slot.Time) {
					continue
				}
				at := slotTimestamp(dayStart, slot.Time)
				if !at.After(now) {
					continue
				}
				if best == nil || at.Before(best.At) {
					best = &Closest{Reminder: r, At: at}
				}
			}
		}
	}

	return best
}

// slotTimestamp anchors an "HH:MM" slot time on the calendar day of base.
func slotTimestamp(base time.Time, hhmm string) time.Time {
	h, _ := strconv.Atoi(hhmm[:2])
	m, _ := strconv.Atoi(hhmm[3:])
	return time.Date(base.Year(), base.Month(), base.Day(), h, m, 0, 0, base.Location())
}
