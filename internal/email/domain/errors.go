package domain

import "errors"

// ErrSyncInProgress signals that a sync for the user is already running.
// Callers get a conflict, never a queue.
var ErrSyncInProgress = errors.New("sync already in progress")
