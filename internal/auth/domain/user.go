package domain

import "time"

// User is one mailbox owner. Provider decides which MailProvider syncs the
// account; the token/IMAP fields carry that provider's credentials.
type User struct {
	ID       string `json:"id" gorm:"primaryKey"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-"` // Never return password in JSON
	Name     string `json:"name"`
	Provider string `json:"provider"` // "local", "google" or "imap"

	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`

	IMAPHost     string `json:"-"`
	IMAPPassword string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
