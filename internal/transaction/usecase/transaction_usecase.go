package usecase

import (
	"errors"
	"fmt"
	"time"

	"finmail-backend/internal/transaction/domain"
	"finmail-backend/internal/transaction/repository"
	"finmail-backend/pkg/mlservice"
)

var (
	ErrNotFound     = errors.New("transaction not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// transactionUsecase implements TransactionUsecase interface
type transactionUsecase struct {
	txRepo repository.TransactionRepository
}

// NewTransactionUsecase creates a new instance of transactionUsecase
func NewTransactionUsecase(txRepo repository.TransactionRepository) TransactionUsecase {
	return &transactionUsecase{
		txRepo: txRepo,
	}
}

func (u *transactionUsecase) CreateFromCandidate(userID, messageID string, candidate mlservice.Candidate) (*domain.Transaction, error) {
	if candidate.Amount <= 0 {
		return nil, fmt.Errorf("candidate amount must be positive, got %v", candidate.Amount)
	}

	tx := &domain.Transaction{
		UserID:        userID,
		Amount:        candidate.Amount,
		Currency:      domain.DefaultCurrency,
		Date:          candidate.Date,
		Type:          domain.NormalizeType(candidate.Type),
		Merchant:      candidate.Merchant,
		Confidence:    1,
		RawExtraction: candidate.RawResponse,
	}
	if messageID != "" {
		tx.MessageID = &messageID
	}

	if err := u.txRepo.Create(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (u *transactionUsecase) GetTransactionByID(userID, transactionID string) (*domain.Transaction, error) {
	tx, err := u.txRepo.FindByID(transactionID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrNotFound
	}
	if tx.UserID != userID {
		return nil, ErrUnauthorized
	}
	return tx, nil
}

func (u *transactionUsecase) GetUserTransactions(userID string, filter repository.ListFilter, limit, offset int) ([]*domain.Transaction, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return u.txRepo.FindByUserID(userID, filter, limit, offset)
}

func (u *transactionUsecase) UpdateTransaction(userID, transactionID string, updates TransactionUpdateRequest) (*domain.Transaction, error) {
	tx, err := u.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	if updates.Amount != nil {
		if *updates.Amount <= 0 {
			return nil, errors.New("amount must be positive")
		}
		tx.Amount = *updates.Amount
	}
	if updates.Currency != nil {
		if len(*updates.Currency) != 3 {
			return nil, errors.New("currency must be a 3-letter code")
		}
		tx.Currency = *updates.Currency
	}
	if updates.Date != nil {
		if *updates.Date == "" {
			tx.Date = nil
		} else if t, err := time.Parse(time.RFC3339, *updates.Date); err == nil {
			tx.Date = &t
		} else if t, err := time.Parse("2006-01-02", *updates.Date); err == nil {
			tx.Date = &t
		} else {
			return nil, errors.New("unparseable date")
		}
	}
	if updates.Type != nil {
		tx.Type = domain.NormalizeType(*updates.Type)
	}
	if updates.Merchant != nil {
		if *updates.Merchant == "" {
			tx.Merchant = nil
		} else {
			tx.Merchant = updates.Merchant
		}
	}
	if updates.Category != nil {
		if *updates.Category == "" {
			tx.Category = nil
		} else {
			tx.Category = updates.Category
		}
	}
	if updates.Verified != nil {
		tx.Verified = *updates.Verified
	}

	if err := u.txRepo.Update(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (u *transactionUsecase) DeleteTransaction(userID, transactionID string) error {
	if _, err := u.GetTransactionByID(userID, transactionID); err != nil {
		return err
	}
	return u.txRepo.Delete(transactionID)
}
