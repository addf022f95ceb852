package usecase

import (
	"finmail-backend/internal/transaction/domain"
	"finmail-backend/internal/transaction/repository"
	"finmail-backend/pkg/mlservice"
)

// TransactionUsecase defines the interface for transaction business logic
type TransactionUsecase interface {
	// CreateFromCandidate persists one extractor candidate for a message.
	// The transaction inherits the message owner's id.
	CreateFromCandidate(userID, messageID string, candidate mlservice.Candidate) (*domain.Transaction, error)

	// GetTransactionByID retrieves a transaction by ID (with ownership check)
	GetTransactionByID(userID, transactionID string) (*domain.Transaction, error)

	// GetUserTransactions retrieves transactions for a user with optional filters
	GetUserTransactions(userID string, filter repository.ListFilter, limit, offset int) ([]*domain.Transaction, int64, error)

	// UpdateTransaction applies an owner edit
	UpdateTransaction(userID, transactionID string, updates TransactionUpdateRequest) (*domain.Transaction, error)

	// DeleteTransaction deletes a transaction (owner only)
	DeleteTransaction(userID, transactionID string) error
}

// TransactionUpdateRequest represents the fields an owner may correct
type TransactionUpdateRequest struct {
	Amount   *float64 `json:"amount,omitempty"`
	Currency *string  `json:"currency,omitempty"`
	Date     *string  `json:"date,omitempty"`
	Type     *string  `json:"type,omitempty"`
	Merchant *string  `json:"merchant,omitempty"`
	Category *string  `json:"category,omitempty"`
	Verified *bool    `json:"verified,omitempty"`
}
