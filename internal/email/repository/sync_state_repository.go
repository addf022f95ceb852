package repository

import (
	"time"

	emaildomain "finmail-backend/internal/email/domain"

	"gorm.io/gorm"
)

// syncStateRepository implements SyncStateRepository interface
type syncStateRepository struct {
	db *gorm.DB
}

// NewSyncStateRepository creates a new instance of syncStateRepository
func NewSyncStateRepository(db *gorm.DB) SyncStateRepository {
	return &syncStateRepository{
		db: db,
	}
}

func (r *syncStateRepository) Get(userID string) (*emaildomain.SyncState, error) {
	var state emaildomain.SyncState
	now := time.Now()
	result := r.db.Where("user_id = ?", userID).FirstOrCreate(&state, emaildomain.SyncState{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if result.Error != nil {
		return nil, result.Error
	}
	return &state, nil
}

// BeginSync takes the per-user lock with a conditional update so two
// concurrent requests cannot both win.
func (r *syncStateRepository) BeginSync(userID string) error {
	if _, err := r.Get(userID); err != nil {
		return err
	}

	now := time.Now()
	result := r.db.Model(&emaildomain.SyncState{}).
		Where("user_id = ? AND sync_in_progress = ?", userID, false).
		Updates(map[string]interface{}{
			"sync_in_progress": true,
			"sync_started_at":  now,
			"last_error":       nil,
			"updated_at":       now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return emaildomain.ErrSyncInProgress
	}
	return nil
}

func (r *syncStateRepository) FinishSync(userID string, syncError *string) error {
	now := time.Now()
	return r.db.Model(&emaildomain.SyncState{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"sync_in_progress": false,
			"sync_started_at":  nil,
			"last_synced_at":   now,
			"last_error":       syncError,
			"updated_at":       now,
		}).Error
}

func (r *syncStateRepository) AddTotalMessages(userID string, n int64) error {
	if n == 0 {
		return nil
	}
	return r.db.Model(&emaildomain.SyncState{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"total_messages": gorm.Expr("total_messages + ?", n),
			"updated_at":     time.Now(),
		}).Error
}

func (r *syncStateRepository) IncrementTransactional(userID string) error {
	return r.db.Model(&emaildomain.SyncState{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"transactional_messages": gorm.Expr("transactional_messages + ?", 1),
			"updated_at":             time.Now(),
		}).Error
}

// ResetStale recovers locks left behind by a crash: any in-progress flag whose
// sync started before the threshold is cleared.
func (r *syncStateRepository) ResetStale(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	staleErr := "sync reset after stale lock recovery"
	result := r.db.Model(&emaildomain.SyncState{}).
		Where("sync_in_progress = ? AND sync_started_at < ?", true, cutoff).
		Updates(map[string]interface{}{
			"sync_in_progress": false,
			"sync_started_at":  nil,
			"last_error":       staleErr,
			"updated_at":       time.Now(),
		})
	return result.RowsAffected, result.Error
}
