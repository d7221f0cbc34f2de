package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medicare/medicare/internal/domain/reminder"
	"github.com/medicare/medicare/internal/platform/clock"
)

// notificationTitle is shared by all reminder triggers; dedup relies on
// the body carrying the reminder name.
const notificationTitle = "Medication Reminder"

// Scheduler keeps device notifications in sync with today's pending
// slots. All failures here are logged and swallowed: scheduling must
// never block list rendering or the completion flow.
type Scheduler struct {
	mu       sync.Mutex
	notifier Notifier
	clk      clock.Clock
	logger   zerolog.Logger

	// index maps trigger id to its scheduled trigger for O(1) dedup and
	// cancellation, seeded once from the platform's scheduled list.
	index  map[string]Trigger
	seeded bool

	permitted       bool
	permissionAsked bool
}

func NewScheduler(notifier Notifier, clk clock.Clock, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		notifier: notifier,
		clk:      clk,
		logger:   logger,
		index:    make(map[string]Trigger),
	}
}

// TriggerID returns the deterministic id for a (reminder, slot) pair.
// Two reminders sharing name and slot time collide; the id scheme
// carries no owner or reminder id on purpose, matching the historical
// notification identity.
func TriggerID(name, timeStr string) string {
	return sanitizeName(name) + "_" + timeStr
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// SyncToday ensures exactly one trigger exists for every pending slot of
// today, across all reminders. Repeated calls are idempotent.
func (s *Scheduler) SyncToday(ctx context.Context, reminders []*reminder.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ensurePermission(ctx) {
		return
	}
	s.seedIndex(ctx)

	now := s.clk.Now()
	day := clock.DayCode(now)
	nowHHMM := clock.HHMM(now)

	for _, r := range reminders {
		if !r.HasDay(day) {
			continue
		}
		for i := range r.Times {
			slot := &r.Times[i]
			if !reminder.ValidTime(slot.Time) {
				s.logger.Warn().Str("reminder", r.Name).Str("time", slot.Time).Msg("skipping malformed slot time")
				continue
			}
			if slot.CompletedOn(day) || slot.Time <= nowHHMM {
				continue
			}
			s.scheduleSlot(ctx, r, slot, now)
		}
	}
}

func (s *Scheduler) scheduleSlot(ctx context.Context, r *reminder.Reminder, slot *reminder.TimeSlot, now time.Time) {
	id := TriggerID(r.Name, slot.Time)
	at := slotTime(now, slot.Time)
	trigger := Trigger{
		ID:    id,
		Title: notificationTitle,
		Body:  fmt.Sprintf("Time to take %s (%d dose)", r.Name, slot.Dose),
		At:    at,
	}

	// Dedup: an existing trigger with the same title, a body naming the
	// reminder, and the same timestamp means nothing to do.
	if existing, ok := s.index[id]; ok {
		if existing.Title == trigger.Title &&
			strings.Contains(existing.Body, r.Name) &&
			existing.At.Equal(at) {
			return
		}
	}

	if err := s.notifier.Schedule(ctx, trigger); err != nil {
		s.logger.Error().Err(err).Str("trigger_id", id).Msg("failed to schedule notification")
		return
	}
	s.index[id] = trigger
}

// CancelSlot cancels the trigger for a slot, typically right after the
// slot was optimistically marked completed. Errors are logged only.
func (s *Scheduler) CancelSlot(ctx context.Context, name, timeStr string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := TriggerID(name, timeStr)
	if err := s.notifier.Cancel(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("trigger_id", id).Msg("failed to cancel notification")
		return
	}
	delete(s.index, id)
}

// ensurePermission asks for notification permission once. Denial is
// remembered and makes every sync a no-op; it is never an error.
func (s *Scheduler) ensurePermission(ctx context.Context) bool {
	if s.permissionAsked {
		return s.permitted
	}
	s.permissionAsked = true

	granted, err := s.notifier.RequestPermission(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("notification permission request failed")
		return false
	}
	if !granted {
		s.logger.Warn().Msg("notification permission denied, scheduling disabled")
	}
	s.permitted = granted
	return granted
}

// seedIndex loads the platform's scheduled triggers once, so dedup also
// covers triggers created by a previous process.
func (s *Scheduler) seedIndex(ctx context.Context) {
	if s.seeded {
		return
	}
	s.seeded = true

	existing, err := s.notifier.Scheduled(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not list scheduled notifications")
		return
	}
	for _, t := range existing {
		s.index[t.ID] = t
	}
}

// slotTime anchors a validated "HH:MM" string on the calendar day of base.
func slotTime(base time.Time, hhmm string) time.Time {
	h, _ := strconv.Atoi(hhmm[:2])
	m, _ := strconv.Atoi(hhmm[3:])
	return time.Date(base.Year(), base.Month(), base.Day(), h, m, 0, 0, base.Location())
}
