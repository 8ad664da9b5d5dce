package wizard

import (
	"context"
	"time"
)

// Repository persists session snapshots so drafts survive a service restart.
type Repository interface {
	Save(ctx context.Context, snap Snapshot) error
	// Get returns ErrSessionNotFound when no snapshot exists.
	Get(ctx context.Context, id string) (Snapshot, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Snapshot, error)
	// DeleteIdle deletes snapshots not updated since before and returns how many were deleted.
	DeleteIdle(ctx context.Context, before time.Time) (int, error)
}
