package domain

import "time"

// SyncState is the per-user sync cursor. SyncInProgress doubles as the
// mutual-exclusion guard: at most one active sync per user, a second request
// is rejected while it is set. The orchestrator must clear it on every exit
// path; the startup stale-lock sweep handles flags left behind by a crash.
type SyncState struct {
	UserID                string     `json:"user_id" gorm:"primaryKey"`
	LastSyncedAt          *time.Time `json:"last_synced_at"`
	SyncInProgress        bool       `json:"sync_in_progress" gorm:"default:false"`
	SyncStartedAt         *time.Time `json:"sync_started_at"`
	TotalMessages         int64      `json:"total_messages" gorm:"default:0"`
	TransactionalMessages int64      `json:"transactional_messages" gorm:"default:0"`
	LastError             *string    `json:"last_error,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (SyncState) TableName() string {
	return "sync_states"
}
