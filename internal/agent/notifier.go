package agent

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Trigger is a scheduled device notification.
type Trigger struct {
	ID    string
	Title string
	Body  string
	At    time.Time
}

// Notifier abstracts the platform notification API. Absence of permission
// is reported through RequestPermission, never as a hard failure of the
// reminder flow.
type Notifier interface {
	RequestPermission(ctx context.Context) (bool, error)
	Schedule(ctx context.Context, t Trigger) error
	Cancel(ctx context.Context, id string) error
	Scheduled(ctx context.Context) ([]Trigger, error)
}

// ---------------------------------------------------------------------------
// Log notifier
// ---------------------------------------------------------------------------

// LogNotifier is a headless Notifier that records triggers in memory and
// logs scheduling activity. It stands in for a platform notification
// center on devices without one.
type LogNotifier struct {
	mu       sync.Mutex
	logger   zerolog.Logger
	triggers map[string]Trigger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{
		logger:   logger,
		triggers: make(map[string]Trigger),
	}
}

func (n *LogNotifier) RequestPermission(_ context.Context) (bool, error) {
	return true, nil
}

func (n *LogNotifier) Schedule(_ context.Context, t Trigger) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.triggers[t.ID] = t
	n.logger.Info().Str("trigger_id", t.ID).Time("at", t.At).Str("title", t.Title).Msg("notification scheduled")
	return nil
}

func (n *LogNotifier) Cancel(_ context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.triggers[id]; ok {
		delete(n.triggers, id)
		n.logger.Info().Str("trigger_id", id).Msg("notification cancelled")
	}
	return nil
}

func (n *LogNotifier) Scheduled(_ context.Context) ([]Trigger, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Trigger, 0, len(n.triggers))
	for _, t := range n.triggers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

// ---------------------------------------------------------------------------
// Mock notifier (test double)
// ---------------------------------------------------------------------------

// MockNotifier is a test double for Notifier.
type MockNotifier struct {
	mu sync.Mutex

	ShouldFailSchedule bool
	ShouldFailCancel   bool
	PermissionDenied   bool

	PermissionRequests int
	ScheduleCalls      int
	CancelCalls        int

	triggers map[string]Trigger
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{triggers: make(map[string]Trigger)}
}

func (m *MockNotifier) RequestPermission(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PermissionRequests++
	return !m.PermissionDenied, nil
}

func (m *MockNotifier) Schedule(_ context.Context, t Trigger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ScheduleCalls++
	if m.ShouldFailSchedule {
		return errors.New("mock schedule failure")
	}
	m.triggers[t.ID] = t
	return nil
}

func (m *MockNotifier) Cancel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CancelCalls++
	if m.ShouldFailCancel {
		return errors.New("mock cancel failure")
	}
	delete(m.triggers, id)
	return nil
}

func (m *MockNotifier) Scheduled(_ context.Context) ([]Trigger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Trigger, 0, len(m.triggers))
	for _, t := range m.triggers {
		out = append(out, t)
	}
	return out, nil
}

// Trigger returns the scheduled trigger with the given id, if any.
func (m *MockNotifier) Trigger(id string) (Trigger, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.triggers[id]
	return t, ok
}

// Count returns the number of currently scheduled triggers.
func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.triggers)
}
