package agent

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medicare/medicare/internal/domain/reminder"
	"github.com/medicare/medicare/internal/platform/clock"
)

// SyncClient orchestrates the device-side reminder flow: periodic fetch,
// optimistic completion with rollback on failure, and notification
// upkeep. The last successfully fetched snapshot stays usable under any
// backend or permission failure.
type SyncClient struct {
	api       *APIClient
	scheduler *Scheduler
	clk       clock.Clock
	logger    zerolog.Logger
	owner     string

	mu        sync.Mutex
	reminders []*reminder.Reminder
}

func NewSyncClient(api *APIClient, scheduler *Scheduler, clk clock.Clock, logger zerolog.Logger, owner string) *SyncClient {
	return &SyncClient{
		api:       api,
		scheduler: scheduler,
		clk:       clk,
		logger:    logger,
		owner:     owner,
	}
}

// Refresh fetches the owner's reminders and re-syncs today's
// notifications. On failure the previous snapshot is kept; the caller
// decides whether the error is user-facing (explicit refresh) or
// ignorable (background cycle).
func (s *SyncClient) Refresh(ctx context.Context) error {
	reminders, err := s.api.Reminders(ctx, s.owner)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.reminders = reminders
	s.mu.Unlock()

	s.scheduler.SyncToday(ctx, reminders)
	return nil
}

// Reminders returns the current snapshot.
func (s *SyncClient) Reminders() []*reminder.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*reminder.Reminder, len(s.reminders))
	copy(out, s.reminders)
	return out
}

// Next returns the earliest upcoming occurrence across the snapshot.
func (s *SyncClient) Next() *reminder.Closest {
	return reminder.ClosestOccurrence(s.Reminders(), s.clk.Now())
}

// MarkCompleted marks a slot completed for today: optimistic local
// mutation, trigger cancellation, then the backend patch. Any failure,
// including timeout, rolls the local mutation back exactly; the
// notification cancellation is fire-and-forget either way.
func (s *SyncClient) MarkCompleted(ctx context.Context, id, timeStr string) error {
	s.mu.Lock()
	var target *reminder.Reminder
	for _, r := range s.reminders {
		if r.ID == id {
			target = r
			break
		}
	}
	s.mu.Unlock()

	if target == nil {
		return ErrDiverged
	}

	day := clock.DayCode(s.clk.Now())
	mut, err := BeginMutation(target, timeStr, day)
	if err != nil {
		return err
	}

	s.scheduler.CancelSlot(ctx, target.Name, timeStr)

	if _, err := s.api.MarkCompleted(ctx, id, timeStr, day); err != nil {
		mut.Rollback()
		// The cancelled trigger reappears on the next sync cycle since
		// the slot is pending again.
		return err
	}

	mut.Commit()
	return nil
}

// Run refreshes on a fixed interval until the context is cancelled.
// Background failures are logged and swallowed.
func (s *SyncClient) Run(ctx context.Context, interval time.Duration) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("initial refresh failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("background refresh failed")
			}
		}
	}
}
