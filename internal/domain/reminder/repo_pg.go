package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns a Repository backed by PostgreSQL. Slots are stored
// as a JSONB column; the completion patch rewrites it under a row lock.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const reminderCols = `id, username, name, description, days, times, total_doses, created_at`

func (r *repoPG) scanReminder(row pgx.Row) (*Reminder, error) {
	var rem Reminder
	var id uuid.UUID
	var times []byte
	err := row.Scan(&id, &rem.Owner, &rem.Name, &rem.Description, &rem.Days,
		&times, &rem.TotalDoses, &rem.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(times, &rem.Times); err != nil {
		return nil, fmt.Errorf("decode times: %w", err)
	}
	rem.ID = id.String()
	rem.RefreshCompleted()
	return &rem, nil
}

func (r *repoPG) Create(ctx context.Context, rem *Reminder) error {
	id := uuid.New()
	times, err := json.Marshal(rem.Times)
	if err != nil {
		return fmt.Errorf("encode times: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO reminder (id, username, name, description, days, times, total_doses, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, rem.Owner, rem.Name, rem.Description, rem.Days, times, rem.TotalDoses, rem.CreatedAt)
	if err != nil {
		return err
	}

	rem.ID = id.String()
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Reminder, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.scanReminder(r.pool.QueryRow(ctx,
		`SELECT `+reminderCols+` FROM reminder WHERE id = $1`, uid))
}

func (r *repoPG) ListByOwner(ctx context.Context, owner string) ([]*Reminder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reminderCols+` FROM reminder WHERE username = $1 ORDER BY created_at`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *repoPG) ListAll(ctx context.Context) ([]*Reminder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reminderCols+` FROM reminder ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *repoPG) collect(rows pgx.Rows) ([]*Reminder, error) {
	reminders := []*Reminder{}
	for rows.Next() {
		rem, err := r.scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reminders, nil
}

// MarkSlotCompleted runs in a transaction holding a row lock, so a
// concurrent patch for another slot of the same reminder serializes
// behind this one instead of overwriting the times column.
func (r *repoPG) MarkSlotCompleted(ctx context.Context, id, timeStr, day string) (*PatchResult, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	err = tx.QueryRow(ctx, `SELECT times FROM reminder WHERE id = $1 FOR UPDATE`, uid).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var times []TimeSlot
	if err := json.Unmarshal(raw, &times); err != nil {
		return nil, fmt.Errorf("decode times: %w", err)
	}

	idx := -1
	for i := range times {
		if times[i].Time == timeStr {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrSlotNotFound
	}
	if times[idx].Completed[day] {
		return nil, ErrNotModified
	}

	if times[idx].Completed == nil {
		times[idx].Completed = make(map[string]bool, 1)
	}
	times[idx].Completed[day] = true

	updated, err := json.Marshal(times)
	if err != nil {
		return nil, fmt.Errorf("encode times: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE reminder SET times = $2 WHERE id = $1`, uid, updated); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	all := true
	for i := range times {
		if !times[i].Completed[day] {
			all = false
			break
		}
	}
	return &PatchResult{Modified: true, AllSlotsCompleted: all}, nil
}

func (r *repoPG) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM reminder WHERE id = $1`, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
