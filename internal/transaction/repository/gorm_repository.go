package repository

import (
	"errors"
	"time"

	"finmail-backend/internal/transaction/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormTransactionRepository implements TransactionRepository using GORM
type gormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GORM-based TransactionRepository
func NewGormTransactionRepository(db *gorm.DB) TransactionRepository {
	return &gormTransactionRepository{db: db}
}

func (r *gormTransactionRepository) Create(tx *domain.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.Currency == "" {
		tx.Currency = domain.DefaultCurrency
	}
	tx.CreatedAt = time.Now()
	tx.UpdatedAt = time.Now()
	return r.db.Create(tx).Error
}

func (r *gormTransactionRepository) FindByID(id string) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := r.db.Where("id = ?", id).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *gormTransactionRepository) FindByUserID(userID string, filter ListFilter, limit, offset int) ([]*domain.Transaction, int64, error) {
	var txs []*domain.Transaction
	var total int64

	query := r.db.Model(&domain.Transaction{}).Where("user_id = ?", userID)
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Verified != nil {
		query = query.Where("verified = ?", *filter.Verified)
	}
	if filter.From != nil {
		query = query.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("date <= ?", *filter.To)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Undated transactions sort last
	err := query.Order("CASE WHEN date IS NULL THEN 1 ELSE 0 END, date DESC, created_at DESC").
		Limit(limit).Offset(offset).Find(&txs).Error

	return txs, total, err
}

func (r *gormTransactionRepository) Update(tx *domain.Transaction) error {
	tx.UpdatedAt = time.Now()
	return r.db.Save(tx).Error
}

func (r *gormTransactionRepository) Delete(id string) error {
	return r.db.Delete(&domain.Transaction{}, "id = ?", id).Error
}

func (r *gormTransactionRepository) DeleteByMessageID(messageID string) error {
	return r.db.Where("message_id = ?", messageID).Delete(&domain.Transaction{}).Error
}
