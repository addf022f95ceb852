package usecase

import (
	"context"
	"errors"
	"log"

	emaildomain "finmail-backend/internal/email/domain"
)

// SyncJob represents a background request to sync and process a mailbox
type SyncJob struct {
	UserID     string
	FullResync bool
}

// startSyncWorkers starts worker goroutines to drain the sync job queue
func (u *emailUsecase) startSyncWorkers(workerCount int) {
	if workerCount <= 0 {
		workerCount = 3
	}
	for i := 0; i < workerCount; i++ {
		go u.syncWorker(i)
	}
	log.Printf("[SyncWorker] Started %d workers", workerCount)
}

// syncWorker runs sync jobs from the queue. Each job is a full sync followed
// by a processing pass; failures are logged, never propagated, so one user's
// broken mailbox cannot stall the queue.
func (u *emailUsecase) syncWorker(id int) {
	for job := range u.jobQueue {
		ctx := context.Background()

		if _, err := u.SyncMailbox(ctx, job.UserID, job.FullResync); err != nil {
			if errors.Is(err, emaildomain.ErrSyncInProgress) {
				log.Printf("[SyncWorker] Worker %d: sync already running for user %s, skipping", id, job.UserID)
				continue
			}
			log.Printf("[SyncWorker] Worker %d: sync failed for user %s: %v", id, job.UserID, err)
			continue
		}

		if _, err := u.ProcessUnprocessed(ctx, job.UserID); err != nil {
			log.Printf("[SyncWorker] Worker %d: processing failed for user %s: %v", id, job.UserID, err)
		}
	}
}

// EnqueueSync adds a sync job to the queue (non-blocking)
func (u *emailUsecase) EnqueueSync(userID string, fullResync bool) bool {
	select {
	case u.jobQueue <- SyncJob{UserID: userID, FullResync: fullResync}:
		return true
	default:
		return false // Queue full
	}
}
