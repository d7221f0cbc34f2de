package agent

import (
	"time"

	"github.com/medicare/medicare/internal/domain/reminder"
)

// ---------------------------------------------------------------------------
// Slot display state
// ---------------------------------------------------------------------------

// SlotState describes one (reminder, weekday, slot) combination at a point
// in time.
type SlotState int

const (
	// SlotNotDue means the weekday is not part of the reminder's schedule.
	SlotNotDue SlotState = iota
	// SlotPending means the slot is scheduled today and still ahead of the clock.
	SlotPending
	// SlotPastDue means the slot's time passed today without completion.
	SlotPastDue
	// SlotCompleted is terminal for the day; it never reverts automatically.
	SlotCompleted
)

func (s SlotState) String() string {
	switch s {
	case SlotNotDue:
		return "not_due"
	case SlotPending:
		return "pending"
	case SlotPastDue:
		return "past_due"
	case SlotCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// StateOf classifies a slot for the weekday of now.
func StateOf(r *reminder.Reminder, slot *reminder.TimeSlot, day, nowHHMM string) SlotState {
	if !r.HasDay(day) {
		return SlotNotDue
	}
	if slot.CompletedOn(day) {
		return SlotCompleted
	}
	if reminder.ValidTime(slot.Time) && slot.Time > nowHHMM {
		return SlotPending
	}
	return SlotPastDue
}

// ---------------------------------------------------------------------------
// Optimistic mutations
// ---------------------------------------------------------------------------

// MutationState tracks an optimistic completion through its lifecycle.
type MutationState int

const (
	MutationIdle MutationState = iota
	MutationPending
	MutationCommitted
	MutationRolledBack
)

// Mutation is one optimistic slot completion with enough captured state
// to undo it exactly. Rollback restores the slot flag and leaves the
// derived aggregate to recompute from slot state, so the post-rollback
// document is identical to the pre-call one.
type Mutation struct {
	state    MutationState
	reminder *reminder.Reminder
	slotIdx  int
	day      string

	prevValue  bool
	prevExists bool
	appliedAt  time.Time
}

// BeginMutation applies `slot.completed[day] = true` locally and captures
// the previous value. It fails when the slot or day cannot be resolved,
// before any state is touched.
func BeginMutation(r *reminder.Reminder, timeStr, day string) (*Mutation, error) {
	idx := r.SlotIndex(timeStr)
	if idx < 0 {
		return nil, reminder.ErrSlotNotFound
	}
	if !reminder.IsWeekdayCode(day) {
		return nil, &reminder.ValidationError{Field: "day", Reason: "unknown weekday code"}
	}

	m := &Mutation{
		state:     MutationPending,
		reminder:  r,
		slotIdx:   idx,
		day:       day,
		appliedAt: time.Now(),
	}

	slot := &r.Times[idx]
	m.prevValue, m.prevExists = slot.Completed[day]

	if slot.Completed == nil {
		slot.Completed = make(map[string]bool, 1)
	}
	slot.Completed[day] = true
	r.RefreshCompleted()

	return m, nil
}

// State returns the mutation's lifecycle state.
func (m *Mutation) State() MutationState { return m.state }

// Commit keeps the optimistic state. The backend response is not copied
// over it beyond acknowledging success.
func (m *Mutation) Commit() {
	if m.state != MutationPending {
		return
	}
	m.state = MutationCommitted
}

// Rollback restores the slot flag to its exact pre-call value, including
// deleting the map key when it did not exist before.
func (m *Mutation) Rollback() {
	if m.state != MutationPending {
		return
	}

	slot := &m.reminder.Times[m.slotIdx]
	if m.prevExists {
		slot.Completed[m.day] = m.prevValue
	} else {
		delete(slot.Completed, m.day)
	}
	m.reminder.RefreshCompleted()
	m.state = MutationRolledBack
}
