package reminder

import "context"

// PatchResult reports the outcome of an atomic slot-completion update.
type PatchResult struct {
	// Modified is true when the slot flag actually changed.
	Modified bool
	// AllSlotsCompleted is the aggregate for the patched day, recomputed
	// from the post-update state of every slot.
	AllSlotsCompleted bool
}

// Repository persists reminders.
//
// MarkSlotCompleted must set the slot's flag and compute the returned
// aggregate as a single atomic operation against the stored document, so
// that two concurrent patches for different slots of the same reminder
// cannot produce a torn update.
type Repository interface {
	Create(ctx context.Context, r *Reminder) error
	GetByID(ctx context.Context, id string) (*Reminder, error)
	ListByOwner(ctx context.Context, owner string) ([]*Reminder, error)
	ListAll(ctx context.Context) ([]*Reminder, error)
	MarkSlotCompleted(ctx context.Context, id, timeStr, day string) (*PatchResult, error)
	Delete(ctx context.Context, id string) error
}
