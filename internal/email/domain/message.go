package domain

import "time"

// Classification is the tri-state transactional verdict for a message.
type Classification string

const (
	ClassificationUnknown          Classification = "unknown"
	ClassificationTransactional    Classification = "transactional"
	ClassificationNonTransactional Classification = "non_transactional"
)

// Message is one ingested mail item. Created unprocessed at fetch time and
// mutated exactly once by the processor, which flips Processed and fills in
// the classification fields.
type Message struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	ExternalID string    `json:"external_id" gorm:"uniqueIndex;not null"`
	UserID     string    `json:"user_id" gorm:"index;not null"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	ReceivedAt time.Time `json:"received_at" gorm:"index"`

	RawBody   string `json:"-" gorm:"type:text"`
	PlainBody string `json:"plain_body" gorm:"type:text"`

	// Labels and Attachments are JSON-serialized; see dto for the decoded view.
	Labels      string `json:"-" gorm:"type:text"`
	Attachments string `json:"-" gorm:"type:text"`

	Classification  Classification `json:"classification" gorm:"default:unknown;index"`
	Confidence      float64        `json:"confidence"`
	Processed       bool           `json:"processed" gorm:"default:false;index"`
	ProcessingError *string        `json:"processing_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}
