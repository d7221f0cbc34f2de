package reminder

import (
	"context"
	"fmt"

	"github.com/medicare/medicare/internal/platform/clock"
)

type Service struct {
	repo Repository
	clk  clock.Clock
}

func NewService(repo Repository, clk clock.Clock) *Service {
	return &Service{repo: repo, clk: clk}
}

func (s *Service) Create(ctx context.Context, r *Reminder) error {
	if r.Owner == "" {
		return &ValidationError{Field: "username"}
	}
	if r.Name == "" {
		return &ValidationError{Field: "name"}
	}
	if r.Description == "" {
		return &ValidationError{Field: "description"}
	}
	if len(r.Days) == 0 {
		return &ValidationError{Field: "days"}
	}
	if len(r.Times) == 0 {
		return &ValidationError{Field: "times"}
	}
	if r.TotalDoses <= 0 {
		return &ValidationError{Field: "totalDoses"}
	}

	for _, day := range r.Days {
		if !IsWeekdayCode(day) {
			return &ValidationError{Field: "days", Reason: fmt.Sprintf("unknown weekday code %q", day)}
		}
	}
	for _, slot := range r.Times {
		if !ValidTime(slot.Time) {
			return &ValidationError{Field: "times", Reason: fmt.Sprintf("time %q is not HH:MM", slot.Time)}
		}
		if slot.Dose < 1 {
			return &ValidationError{Field: "times", Reason: "dose must be at least 1"}
		}
	}

	r.InitCompletion()
	r.CreatedAt = s.clk.Now()
	return s.repo.Create(ctx, r)
}

func (s *Service) Get(ctx context.Context, id string) (*Reminder, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, owner string) ([]*Reminder, error) {
	if owner == "" {
		return nil, &ValidationError{Field: "username"}
	}
	return s.repo.ListByOwner(ctx, owner)
}

// ListAll returns every reminder across all owners. The per-day aggregate
// on each document is recomputed from slot state by the repository, which
// covers the display-only "today" projection of the legacy listing.
func (s *Service) ListAll(ctx context.Context) ([]*Reminder, error) {
	return s.repo.ListAll(ctx)
}

// MarkCompleted marks one slot completed for one day. The patch wire
// format accepts a collection of days but only the first element is
// consumed; batched multi-day completion was never part of the contract.
// Returns the reminder post-state alongside the patch result.
func (s *Service) MarkCompleted(ctx context.Context, id, timeStr string, days []string) (*Reminder, *PatchResult, error) {
	if timeStr == "" {
		return nil, nil, &ValidationError{Field: "time"}
	}
	if len(days) == 0 {
		return nil, nil, &ValidationError{Field: "days"}
	}
	day := days[0]
	if !IsWeekdayCode(day) {
		return nil, nil, &ValidationError{Field: "days", Reason: fmt.Sprintf("unknown weekday code %q", day)}
	}

	res, err := s.repo.MarkSlotCompleted(ctx, id, timeStr, day)
	if err != nil {
		return nil, nil, err
	}

	rem, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return rem, res, nil
}

// Delete removes a reminder after verifying ownership.
func (s *Service) Delete(ctx context.Context, id, owner string) error {
	if owner == "" {
		return &ValidationError{Field: "username"}
	}

	rem, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rem.Owner != owner {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

// Next computes the next due occurrence for a single reminder.
func (s *Service) Next(r *Reminder) *Occurrence {
	return NextOccurrence(r, s.clk.Now())
}

// NextForOwner returns the owner's reminder with the earliest upcoming
// slot, or nil when nothing is due within seven days.
func (s *Service) NextForOwner(ctx context.Context, owner string) (*Closest, error) {
	reminders, err := s.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	return ClosestOccurrence(reminders, s.clk.Now()), nil
}
