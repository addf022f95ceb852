package usecase

import (
	"context"

	emaildomain "finmail-backend/internal/email/domain"
	"finmail-backend/pkg/mlservice"
)

// ClassifierService is the contract the processor needs from the
// classification model service.
type ClassifierService interface {
	Classify(ctx context.Context, text string) mlservice.ClassificationResult
	HealthCheck(ctx context.Context) mlservice.HealthStatus
}

// ExtractorService is the contract the processor needs from the
// extraction model service.
type ExtractorService interface {
	Extract(ctx context.Context, text string) ([]mlservice.Candidate, error)
	HealthCheck(ctx context.Context) mlservice.HealthStatus
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Fetched int `json:"fetched"`
	Stored  int `json:"stored"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ProcessResult summarizes one processing run.
type ProcessResult struct {
	Processed           int `json:"processed"`
	Transactional       int `json:"transactional"`
	TransactionsCreated int `json:"transactions_created"`
	Errors              int `json:"errors"`
}

// EmailUsecase defines the interface for mailbox sync and processing
type EmailUsecase interface {
	// SyncMailbox fetches new messages for the user and persists them.
	// Returns domain.ErrSyncInProgress when a sync is already running.
	SyncMailbox(ctx context.Context, userID string, fullResync bool) (*SyncResult, error)

	// ProcessUnprocessed drives unprocessed messages through classification
	// and, when transactional, extraction. Always returns counts; individual
	// message failures are recorded on the message rows.
	ProcessUnprocessed(ctx context.Context, userID string) (*ProcessResult, error)

	// EnqueueSync submits a background sync+process job. Returns false when
	// the queue is full.
	EnqueueSync(userID string, fullResync bool) bool

	// GetSyncStatus returns the user's sync cursor
	GetSyncStatus(userID string) (*emaildomain.SyncState, error)

	// GetMessages lists stored messages for a user, newest first
	GetMessages(userID string, limit, offset int) ([]*emaildomain.Message, int64, error)

	// GetMessageByID returns one stored message (with ownership check)
	GetMessageByID(userID, messageID string) (*emaildomain.Message, error)

	// ServiceHealth probes both model services
	ServiceHealth(ctx context.Context) map[string]mlservice.HealthStatus
}
