package repository

import (
	"time"

	emaildomain "finmail-backend/internal/email/domain"
)

// SyncStateRepository defines persistence for per-user sync cursors
type SyncStateRepository interface {
	// Get returns the user's sync state, creating a zero row if none exists
	Get(userID string) (*emaildomain.SyncState, error)
	// BeginSync atomically sets the in-progress flag.
	// Returns domain.ErrSyncInProgress when a sync is already running.
	BeginSync(userID string) error
	// FinishSync clears the in-progress flag, stamps LastSyncedAt and records
	// the terminal error (nil on success). Must be called on every exit path.
	FinishSync(userID string, syncError *string) error
	// AddTotalMessages atomically increments the stored-message counter
	AddTotalMessages(userID string, n int64) error
	// IncrementTransactional atomically increments the transactional counter
	IncrementTransactional(userID string) error
	// ResetStale clears in-progress flags older than the threshold.
	// Returns the number of rows recovered.
	ResetStale(olderThan time.Duration) (int64, error)
}
