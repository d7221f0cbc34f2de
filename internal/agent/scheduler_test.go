package agent

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medicare/medicare/internal/domain/reminder"
	"github.com/medicare/medicare/internal/platform/clock"
)

// monday0700 is a Monday at 07:00 local time.
var monday0700 = time.Date(2024, 6, 3, 7, 0, 0, 0, time.UTC)

func testScheduler(n Notifier, now time.Time) *Scheduler {
	return NewScheduler(n, clock.NewFake(now), zerolog.Nop())
}

func TestTriggerID(t *testing.T) {
	if got := TriggerID("Amoxicillin", "08:00"); got != "amoxicillin_08:00" {
		t.Errorf("unexpected id %q", got)
	}
	if got := TriggerID("Vitamin D3 (chewable)", "09:00"); got != "vitamin-d3--chewable-_09:00" {
		t.Errorf("unexpected id %q", got)
	}
}

func TestSyncToday_SchedulesPendingSlots(t *testing.T) {
	n := NewMockNotifier()
	s := testScheduler(n, monday0700)

	r := testReminder()
	s.SyncToday(context.Background(), []*reminder.Reminder{r})

	if n.Count() != 2 {
		t.Fatalf("expected 2 triggers, got %d", n.Count())
	}
	trig, ok := n.Trigger("amoxicillin_08:00")
	if !ok {
		t.Fatal("expected 08:00 trigger")
	}
	if trig.Title != "Medication Reminder" {
		t.Errorf("unexpected title %q", trig.Title)
	}
	if !trig.At.Equal(time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected trigger time %v", trig.At)
	}
}

func TestSyncToday_SkipsCompletedPastAndOffDay(t *testing.T) {
	n := NewMockNotifier()
	// Monday 10:00: the 08:00 slot is already past.
	s := testScheduler(n, monday0700.Add(3*time.Hour))

	completed := testReminder()
	completed.Times[1].Completed["Mon"] = true

	offDay := testReminder()
	offDay.Days = []string{"Fri"}

	s.SyncToday(context.Background(), []*reminder.Reminder{completed, offDay})
	if n.Count() != 0 {
		t.Errorf("expected no triggers, got %d", n.Count())
	}
}

func TestSyncToday_DedupAcrossCycles(t *testing.T) {
	n := NewMockNotifier()
	s := testScheduler(n, monday0700)

	r := testReminder()
	s.SyncToday(context.Background(), []*reminder.Reminder{r})
	s.SyncToday(context.Background(), []*reminder.Reminder{r})

	if n.Count() != 2 {
		t.Errorf("expected 2 triggers after two cycles, got %d", n.Count())
	}
	if n.ScheduleCalls != 2 {
		t.Errorf("expected schedule called once per slot, got %d calls", n.ScheduleCalls)
	}
}

func TestSyncToday_SeedsFromPlatform(t *testing.T) {
	n := NewMockNotifier()
	// A trigger left over from a previous process.
	_ = n.Schedule(context.Background(), Trigger{
		ID:    "amoxicillin_08:00",
		Title: "Medication Reminder",
		Body:  "Time to take Amoxicillin (1 dose)",
		At:    time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC),
	})
	n.ScheduleCalls = 0

	s := testScheduler(n, monday0700)
	s.SyncToday(context.Background(), []*reminder.Reminder{testReminder()})

	// Only the 20:00 trigger is new.
	if n.ScheduleCalls != 1 {
		t.Errorf("expected 1 schedule call, got %d", n.ScheduleCalls)
	}
	if n.Count() != 2 {
		t.Errorf("expected 2 triggers, got %d", n.Count())
	}
}

func TestSyncToday_PermissionDeniedIsSilent(t *testing.T) {
	n := NewMockNotifier()
	n.PermissionDenied = true
	s := testScheduler(n, monday0700)

	s.SyncToday(context.Background(), []*reminder.Reminder{testReminder()})
	s.SyncToday(context.Background(), []*reminder.Reminder{testReminder()})

	if n.Count() != 0 {
		t.Errorf("expected no triggers without permission, got %d", n.Count())
	}
	if n.PermissionRequests != 1 {
		t.Errorf("expected a single permission request, got %d", n.PermissionRequests)
	}
}

func TestSyncToday_ScheduleFailureIsSwallowed(t *testing.T) {
	n := NewMockNotifier()
	n.ShouldFailSchedule = true
	s := testScheduler(n, monday0700)

	// Must not panic or propagate.
	s.SyncToday(context.Background(), []*reminder.Reminder{testReminder()})
	if n.Count() != 0 {
		t.Errorf("expected no triggers, got %d", n.Count())
	}
}

func TestSyncToday_MalformedTimeSkipped(t *testing.T) {
	n := NewMockNotifier()
	s := testScheduler(n, monday0700)

	r := testReminder()
	r.Times = append(r.Times, reminder.TimeSlot{Time: "9pm", Dose: 1})

	s.SyncToday(context.Background(), []*reminder.Reminder{r})
	if n.Count() != 2 {
		t.Errorf("expected malformed slot skipped, got %d triggers", n.Count())
	}
}

func TestCancelSlot(t *testing.T) {
	n := NewMockNotifier()
	s := testScheduler(n, monday0700)

	r := testReminder()
	s.SyncToday(context.Background(), []*reminder.Reminder{r})
	if n.Count() != 2 {
		t.Fatalf("expected 2 triggers, got %d", n.Count())
	}

	s.CancelSlot(context.Background(), "Amoxicillin", "08:00")
	if n.Count() != 1 {
		t.Errorf("expected 1 trigger after cancel, got %d", n.Count())
	}
	if _, ok := n.Trigger("amoxicillin_08:00"); ok {
		t.Error("expected 08:00 trigger removed")
	}

	// Cancel failures are logged only.
	n.ShouldFailCancel = true
	s.CancelSlot(context.Background(), "Amoxicillin", "20:00")
	if n.Count() != 1 {
		t.Errorf("expected trigger kept on cancel failure, got %d", n.Count())
	}
}
