package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/medicare/medicare/internal/platform/clock"
)

func slots(times ...string) []TimeSlot {
	var out []TimeSlot
	for _, t := range times {
		out = append(out, TimeSlot{Time: t, Dose: 1, Completed: map[string]bool{}})
	}
	return out
}

func TestNextOccurrence_SameDayLaterSlot(t *testing.T) {
	r := &Reminder{
		Days:  []string{"Mon"},
		Times: slots("09:00", "21:00"),
	}

	// Monday 10:00, 09:00 slot not completed but already past.
	got := NextOccurrence(r, monday1000)
	if got == nil {
		t.Fatal("expected an occurrence")
	}
	if got.Day != "Mon" || got.Time != "21:00" {
		t.Errorf("expected Mon 21:00 today, got %s %s", got.Day, got.Time)
	}
	if !got.At.Equal(time.Date(2024, 6, 3, 21, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %v", got.At)
	}
}

func TestNextOccurrence_NeverOffScheduleDay(t *testing.T) {
	r := &Reminder{
		Days:  []string{"Wed"},
		Times: slots("08:00"),
	}

	// Evaluate from every weekday; the result must always be Wed.
	for i := 0; i < 7; i++ {
		now := monday1000.AddDate(0, 0, i)
		got := NextOccurrence(r, now)
		if got == nil {
			t.Fatalf("expected an occurrence starting %s", clock.DayCode(now))
		}
		if got.Day != "Wed" {
			t.Errorf("from %s: got occurrence on %s", clock.DayCode(now), got.Day)
		}
	}
}

func TestNextOccurrence_CompletedTodayMovesOn(t *testing.T) {
	r := &Reminder{
		Days: []string{"Mon"},
		Times: []TimeSlot{
			{Time: "12:00", Dose: 1, Completed: map[string]bool{"Mon": true}},
		},
	}

	got := NextOccurrence(r, monday1000)
	if got == nil {
		t.Fatal("expected next Monday's occurrence")
	}
	if got.Day != "Mon" || got.Time != "12:00" {
		t.Errorf("expected Mon 12:00, got %s %s", got.Day, got.Time)
	}
	// Completion for future days is not consulted, so the slot lands on
	// next Monday despite the flag.
	want := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	if !got.At.Equal(want) {
		t.Errorf("expected %v, got %v", want, got.At)
	}
}

func TestNextOccurrence_Exhausted(t *testing.T) {
	// Single-day schedule evaluated on that day with the slot completed
	// and no future slot: within the 7-day window the only candidate day
	// is today (day 7 is out of range).
	r := &Reminder{
		Days: []string{"Mon"},
		Times: []TimeSlot{
			{Time: "09:00", Dose: 1, Completed: map[string]bool{"Mon": true}},
		},
	}

	// Monday 10:00: today's slot is completed and the following Monday
	// is day 7, outside the scan.
	if got := NextOccurrence(r, monday1000); got != nil {
		t.Errorf("expected nil when every qualifying day is exhausted, got %+v", got)
	}

	empty := &Reminder{Days: []string{"Mon"}, Times: nil}
	if got := NextOccurrence(empty, monday1000); got != nil {
		t.Errorf("expected nil for reminder with no slots, got %+v", got)
	}
}

func TestNextOccurrence_MalformedTimesFiltered(t *testing.T) {
	r := &Reminder{
		Days:  []string{"Mon"},
		Times: append(slots("21:00"), TimeSlot{Time: "9pm", Dose: 1}, TimeSlot{Time: "25:99x", Dose: 1}),
	}

	got := NextOccurrence(r, monday1000)
	if got == nil {
		t.Fatal("expected an occurrence")
	}
	if got.Time != "21:00" {
		t.Errorf("expected malformed slots filtered, got %s", got.Time)
	}

	onlyBad := &Reminder{Days: []string{"Mon"}, Times: []TimeSlot{{Time: "noon", Dose: 1}}}
	if got := NextOccurrence(onlyBad, monday1000); got != nil {
		t.Errorf("expected nil for all-malformed times, got %+v", got)
	}
}

func TestNextOccurrence_EarliestSlotWins(t *testing.T) {
	r := &Reminder{
		Days:  []string{"Mon"},
		Times: slots("23:00", "11:30", "15:00"),
	}

	got := NextOccurrence(r, monday1000)
	if got == nil {
		t.Fatal("expected an occurrence")
	}
	if got.Time != "11:30" {
		t.Errorf("expected earliest candidate 11:30, got %s", got.Time)
	}
}

func TestClosestOccurrence_GlobalMinimum(t *testing.T) {
	early := &Reminder{Name: "Ibuprofen", Days: []string{"Tue"}, Times: slots("07:00")}
	late := &Reminder{Name: "Amoxicillin", Days: []string{"Mon"}, Times: slots("23:00")}

	got := ClosestOccurrence([]*Reminder{early, late}, monday1000)
	if got == nil {
		t.Fatal("expected a closest occurrence")
	}
	// Monday 23:00 beats Tuesday 07:00.
	if got.Reminder.Name != "Amoxicillin" {
		t.Errorf("expected Amoxicillin, got %s", got.Reminder.Name)
	}
	if !got.At.Equal(time.Date(2024, 6, 3, 23, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %v", got.At)
	}
}

func TestClosestOccurrence_StrictlyAfterNow(t *testing.T) {
	r := &Reminder{Days: []string{"Mon"}, Times: slots("10:00")}

	got := ClosestOccurrence([]*Reminder{r}, monday1000)
	if got == nil {
		t.Fatal("expected next Monday's slot")
	}
	if !got.At.After(monday1000) {
		t.Errorf("expected timestamp strictly after now, got %v", got.At)
	}
	want := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	if !got.At.Equal(want) {
		t.Errorf("expected %v, got %v", want, got.At)
	}
}

func TestClosestOccurrence_Empty(t *testing.T) {
	if got := ClosestOccurrence(nil, monday1000); got != nil {
		t.Errorf("expected nil for no reminders, got %+v", got)
	}

	offWeek := &Reminder{Days: nil, Times: slots("10:00")}
	if got := ClosestOccurrence([]*Reminder{offWeek}, monday1000); got != nil {
		t.Errorf("expected nil for reminder with no days, got %+v", got)
	}
}

func TestEndToEnd_AmoxicillinWeek(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, clock.NewFake(time.Date(2024, 6, 3, 7, 0, 0, 0, time.UTC)))

	rem := validReminder()
	if err := svc.Create(context.Background(), rem); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	listed, err := svc.ListByOwner(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(listed))
	}
	for _, slot := range listed[0].Times {
		if slot.Completed["Mon"] {
			t.Errorf("expected slot %s not completed on Mon", slot.Time)
		}
	}

	next := svc.Next(listed[0])
	if next == nil || next.Day != "Mon" || next.Time != "08:00" || next.Dose != 1 {
		t.Fatalf("expected Mon 08:00 dose 1, got %+v", next)
	}

	if _, _, err := svc.MarkCompleted(context.Background(), rem.ID, "08:00", []string{"Mon"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated, err := svc.Get(context.Background(), rem.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	next = svc.Next(updated)
	if next == nil || next.Day != "Mon" || next.Time != "20:00" || next.Dose != 2 {
		t.Fatalf("expected Mon 20:00 dose 2, got %+v", next)
	}
}
