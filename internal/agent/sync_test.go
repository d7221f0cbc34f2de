package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medicare/medicare/internal/platform/clock"
)

// fakeBackend serves one owner's reminders and accepts completion patches.
type fakeBackend struct {
	listFails  atomic.Bool
	patchFails atomic.Bool
	patchCalls atomic.Int32
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/remind/alice", func(w http.ResponseWriter, r *http.Request) {
		if b.listFails.Load() {
			http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
			return
		}
		rem := testReminder()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"reminders": []interface{}{rem},
		})
	})
	mux.HandleFunc("/reminders/", func(w http.ResponseWriter, r *http.Request) {
		b.patchCalls.Add(1)
		if b.patchFails.Load() {
			http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message":                 "Reminder updated successfully",
			"modified":                true,
			"allTimesCompletedForDay": false,
		})
	})
	return mux
}

func testSyncClient(t *testing.T, backend *fakeBackend) (*SyncClient, *MockNotifier, func()) {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	clk := clock.NewFake(monday0700)
	notifier := NewMockNotifier()
	scheduler := NewScheduler(notifier, clk, zerolog.Nop())
	api := NewAPIClient(srv.URL, 5*time.Second)
	return NewSyncClient(api, scheduler, clk, zerolog.Nop(), "alice"), notifier, srv.Close
}

func TestSyncClient_RefreshPopulatesSnapshotAndTriggers(t *testing.T) {
	s, notifier, closeSrv := testSyncClient(t, &fakeBackend{})
	defer closeSrv()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Reminders(); len(got) != 1 || got[0].Name != "Amoxicillin" {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	if notifier.Count() != 2 {
		t.Errorf("expected 2 triggers scheduled, got %d", notifier.Count())
	}

	next := s.Next()
	if next == nil {
		t.Fatal("expected an upcoming occurrence")
	}
	if !next.At.Equal(time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected next occurrence at %v", next.At)
	}
	if next.Reminder.Name != "Amoxicillin" {
		t.Errorf("unexpected next reminder %q", next.Reminder.Name)
	}
}

func TestSyncClient_RefreshFailureKeepsSnapshot(t *testing.T) {
	backend := &fakeBackend{}
	s, _, closeSrv := testSyncClient(t, backend)
	defer closeSrv()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	backend.listFails.Store(true)
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if got := s.Reminders(); len(got) != 1 {
		t.Errorf("expected previous snapshot kept, got %d reminders", len(got))
	}
}

func TestSyncClient_MarkCompleted(t *testing.T) {
	backend := &fakeBackend{}
	s, notifier, closeSrv := testSyncClient(t, backend)
	defer closeSrv()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rem := s.Reminders()[0]

	if err := s.MarkCompleted(context.Background(), rem.ID, "08:00"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rem.Times[0].Completed["Mon"] {
		t.Error("expected completion flag kept after confirmed patch")
	}
	if backend.patchCalls.Load() != 1 {
		t.Errorf("expected 1 patch call, got %d", backend.patchCalls.Load())
	}
	if _, ok := notifier.Trigger("amoxicillin_08:00"); ok {
		t.Error("expected trigger cancelled")
	}
}

func TestSyncClient_MarkCompletedRollsBackOnFailure(t *testing.T) {
	backend := &fakeBackend{}
	s, notifier, closeSrv := testSyncClient(t, backend)
	defer closeSrv()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rem := s.Reminders()[0]

	wantSlots := make([]map[string]bool, len(rem.Times))
	for i, slot := range rem.Times {
		m := make(map[string]bool, len(slot.Completed))
		for k, v := range slot.Completed {
			m[k] = v
		}
		wantSlots[i] = m
	}

	backend.patchFails.Store(true)
	err := s.MarkCompleted(context.Background(), rem.ID, "08:00")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}

	for i := range rem.Times {
		if !reflect.DeepEqual(rem.Times[i].Completed, wantSlots[i]) {
			t.Errorf("slot %d not restored: got %v, want %v", i, rem.Times[i].Completed, wantSlots[i])
		}
	}
	// The cancellation already went out; the trigger reappears on the
	// next sync cycle because the slot is pending again.
	if notifier.CancelCalls != 1 {
		t.Errorf("expected 1 cancel call, got %d", notifier.CancelCalls)
	}
	s.Refresh(context.Background())
	if _, ok := notifier.Trigger("amoxicillin_08:00"); !ok {
		t.Error("expected trigger rescheduled after failed completion")
	}
}

func TestSyncClient_MarkCompletedUnknownReminder(t *testing.T) {
	s, _, closeSrv := testSyncClient(t, &fakeBackend{})
	defer closeSrv()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.MarkCompleted(context.Background(), "no-such-id", "08:00"); !errors.Is(err, ErrDiverged) {
		t.Errorf("expected ErrDiverged, got %v", err)
	}
}
