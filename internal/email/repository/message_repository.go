package repository

import (
	"errors"
	"time"

	emaildomain "finmail-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// messageRepository implements MessageRepository interface
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new instance of messageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{
		db: db,
	}
}

// CreateIfNew inserts the message, skipping silently when the external id is
// already stored. The unique index on external_id is the source of truth.
func (r *messageRepository) CreateIfNew(message *emaildomain.Message) (bool, error) {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	now := time.Now()
	message.CreatedAt = now
	message.UpdatedAt = now

	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(message)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *messageRepository) GetByID(id string) (*emaildomain.Message, error) {
	var message emaildomain.Message
	err := r.db.Where("id = ?", id).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) ListByUser(userID string, limit, offset int) ([]*emaildomain.Message, int64, error) {
	var messages []*emaildomain.Message
	var total int64

	query := r.db.Model(&emaildomain.Message{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("received_at DESC").Limit(limit).Offset(offset).Find(&messages).Error
	return messages, total, err
}

func (r *messageRepository) GetUnprocessed(userID string, limit int) ([]*emaildomain.Message, error) {
	var messages []*emaildomain.Message
	query := r.db.Where("user_id = ? AND processed = ?", userID, false).Order("received_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&messages).Error
	return messages, err
}

func (r *messageRepository) MarkProcessed(id string, classification emaildomain.Classification, confidence float64, processingError *string) error {
	return r.db.Model(&emaildomain.Message{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processed":        true,
		"classification":   classification,
		"confidence":       confidence,
		"processing_error": processingError,
		"updated_at":       time.Now(),
	}).Error
}
