package repository

import emaildomain "finmail-backend/internal/email/domain"

// MessageRepository defines persistence for ingested messages
type MessageRepository interface {
	// CreateIfNew stores the message unless its external id already exists.
	// Returns true when a new row was created. Never overwrites.
	CreateIfNew(message *emaildomain.Message) (bool, error)
	// GetByID returns the message or nil when not found
	GetByID(id string) (*emaildomain.Message, error)
	// ListByUser returns messages for a user, newest first, with pagination
	ListByUser(userID string, limit, offset int) ([]*emaildomain.Message, int64, error)
	// GetUnprocessed returns up to limit unprocessed messages for a user, oldest first
	GetUnprocessed(userID string, limit int) ([]*emaildomain.Message, error)
	// MarkProcessed records the classification outcome and flips the processed flag
	MarkProcessed(id string, classification emaildomain.Classification, confidence float64, processingError *string) error
}
