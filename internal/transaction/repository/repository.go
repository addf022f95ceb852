package repository

import (
	"time"

	"finmail-backend/internal/transaction/domain"
)

// ListFilter narrows transaction listings.
type ListFilter struct {
	Type     *domain.TransactionType
	Verified *bool
	From     *time.Time
	To       *time.Time
}

// TransactionRepository defines persistence for extracted transactions
type TransactionRepository interface {
	Create(tx *domain.Transaction) error
	FindByID(id string) (*domain.Transaction, error)
	FindByUserID(userID string, filter ListFilter, limit, offset int) ([]*domain.Transaction, int64, error)
	Update(tx *domain.Transaction) error
	Delete(id string) error
	// DeleteByMessageID removes transactions tied to a message (deletion cascade)
	DeleteByMessageID(messageID string) error
}
