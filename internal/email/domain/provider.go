package domain

import (
	"context"
	"errors"
	"time"

	"finmail-backend/pkg/mailbody"

	"golang.org/x/oauth2"
)

var (
	// ErrRateLimited wraps provider rate-limit responses so callers can back off.
	ErrRateLimited = errors.New("mail provider rate limited")
	// ErrMessageNotFound is returned for ids the provider no longer knows.
	ErrMessageNotFound = errors.New("message not found")
)

// TokenUpdateFunc is invoked when the provider rotates an OAuth token so the
// new token can be persisted.
type TokenUpdateFunc func(token *oauth2.Token) error

// Credentials carries whatever a mail provider needs to act as the user.
type Credentials struct {
	AccessToken    string
	RefreshToken   string
	OnTokenRefresh TokenUpdateFunc

	// IMAP accounts
	IMAPHost     string
	IMAPUsername string
	IMAPPassword string
}

// IncomingMessage is a raw fetched message: headers plus the payload tree,
// before persistence.
type IncomingMessage struct {
	ExternalID string
	Subject    string
	From       string
	To         string
	ReceivedAt time.Time
	Labels     []string
	Payload    *mailbody.Part
}

// MailProvider abstracts the mailbox backend (Gmail, IMAP).
type MailProvider interface {
	// ListNewMessages returns messages received after since, newest last.
	// A nil since means the full mailbox (bounded by maxResults).
	ListNewMessages(ctx context.Context, creds Credentials, since *time.Time, maxResults int64) ([]*IncomingMessage, error)
	// GetMessage fetches one message by provider id.
	GetMessage(ctx context.Context, creds Credentials, externalID string) (*IncomingMessage, error)
}
