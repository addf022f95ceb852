package domain

import "time"

// TransactionType tags an extracted transaction.
type TransactionType string

const (
	TypeBillPayment   TransactionType = "bill_payment"
	TypePurchase      TransactionType = "purchase"
	TypeSubscription  TransactionType = "subscription"
	TypeRefund        TransactionType = "refund"
	TypeTransfer      TransactionType = "transfer"
	TypeEntertainment TransactionType = "entertainment"
	TypeFuel          TransactionType = "fuel"
	TypeOther         TransactionType = "other"
)

// DefaultCurrency is applied when the extractor reports no currency.
const DefaultCurrency = "USD"

var validTypes = map[TransactionType]bool{
	TypeBillPayment:   true,
	TypePurchase:      true,
	TypeSubscription:  true,
	TypeRefund:        true,
	TypeTransfer:      true,
	TypeEntertainment: true,
	TypeFuel:          true,
	TypeOther:         true,
}

// NormalizeType maps a raw extractor type onto the fixed enumeration.
// Anything unrecognized becomes TypeOther.
func NormalizeType(raw string) TransactionType {
	t := TransactionType(raw)
	if validTypes[t] {
		return t
	}
	return TypeOther
}

// Transaction is one structured financial record extracted from a message or
// entered manually. Amount is always positive; the owner may later correct
// amount/date/type/merchant and flip Verified.
type Transaction struct {
	ID        string  `json:"id" gorm:"primaryKey"`
	UserID    string  `json:"user_id" gorm:"index;not null"`
	MessageID *string `json:"message_id,omitempty" gorm:"index"` // Optional link to source message

	Amount   float64         `json:"amount" gorm:"not null"`
	Currency string          `json:"currency" gorm:"default:USD"`
	Date     *time.Time      `json:"date,omitempty"`
	Type     TransactionType `json:"type" gorm:"default:other"`
	Merchant *string         `json:"merchant,omitempty"`
	Category *string         `json:"category,omitempty"`

	Confidence    float64 `json:"confidence"`
	Verified      bool    `json:"verified" gorm:"default:false"`
	RawExtraction string  `json:"-" gorm:"type:text"` // Audit trail of the extractor output

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
