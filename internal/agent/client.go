// Package agent implements the device-side half of the reminder system:
// fetching reminders from the backend, tracking optimistic completion
// state, and scheduling local device notifications.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/medicare/medicare/internal/domain/reminder"
)

// ErrDiverged signals that the backend no longer has the state the agent
// was acting on; the caller should refresh rather than retry.
var ErrDiverged = errors.New("reminder state diverged, refresh required")

// RequestError wraps a failed backend call. Timeout distinguishes
// deadline expiry from other transport failures; both roll back the
// optimistic mutation the same way.
type RequestError struct {
	Op      string
	Status  int
	Timeout bool
	Err     error
}

func (e *RequestError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: request timed out", e.Op)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: backend returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// APIClient talks to the reminder backend. There is no automatic retry:
// completion correctness depends on explicit confirmation, so a failed
// call surfaces to the user instead of silently retrying.
type APIClient struct {
	baseURL string
	http    *http.Client
}

// NewAPIClient returns a client with the given request timeout.
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Reminders fetches all reminders for an owner.
func (c *APIClient) Reminders(ctx context.Context, owner string) ([]*reminder.Reminder, error) {
	var envelope struct {
		Success   bool                 `json:"success"`
		Reminders []*reminder.Reminder `json:"reminders"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/remind/"+owner, nil, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, &RequestError{Op: "list reminders", Err: errors.New("backend reported failure")}
	}
	return envelope.Reminders, nil
}

// CreateReminder posts a new reminder and returns its assigned id.
func (c *APIClient) CreateReminder(ctx context.Context, r *reminder.Reminder) (string, error) {
	body := map[string]interface{}{
		"username":    r.Owner,
		"name":        r.Name,
		"description": r.Description,
		"days":        r.Days,
		"times":       r.Times,
		"totalDoses":  r.TotalDoses,
	}
	var resp struct {
		ReminderID string `json:"reminderId"`
	}
	if err := c.do(ctx, http.MethodPost, "/addReminder", body, &resp); err != nil {
		return "", err
	}
	return resp.ReminderID, nil
}

// MarkCompleted patches one slot of a reminder as completed for a day.
func (c *APIClient) MarkCompleted(ctx context.Context, id, timeStr, day string) (*reminder.PatchResult, error) {
	body := map[string]interface{}{
		"time": timeStr,
		"days": []string{day},
	}
	var resp struct {
		Modified                bool `json:"modified"`
		AllTimesCompletedForDay bool `json:"allTimesCompletedForDay"`
	}
	if err := c.do(ctx, http.MethodPatch, "/reminders/"+id, body, &resp); err != nil {
		return nil, err
	}
	return &reminder.PatchResult{
		Modified:          resp.Modified,
		AllSlotsCompleted: resp.AllTimesCompletedForDay,
	}, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	op := method + " " + path

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &RequestError{Op: op, Err: err}
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &RequestError{Op: op, Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrDiverged, op)
	case resp.StatusCode >= 400:
		return &RequestError{Op: op, Status: resp.StatusCode}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &RequestError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
