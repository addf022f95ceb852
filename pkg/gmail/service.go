package gmail

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	emaildomain "finmail-backend/internal/email/domain"
	"finmail-backend/pkg/mailbody"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Service implements domain.MailProvider against the Gmail API
type Service struct {
	clientID     string
	clientSecret string
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback emaildomain.TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			fmt.Printf("Failed to update token: %v\n", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// gmailService creates a Gmail API client acting as the user
func (s *Service) gmailService(ctx context.Context, creds emaildomain.Credentials) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if creds.RefreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	// Wrap token source to detect refreshes
	wrappedSource := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: creds.OnTokenRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// ListNewMessages fetches messages received after since (the full mailbox when
// since is nil), oldest first, bounded by maxResults.
func (s *Service) ListNewMessages(ctx context.Context, creds emaildomain.Credentials, since *time.Time, maxResults int64) ([]*emaildomain.IncomingMessage, error) {
	srv, err := s.gmailService(ctx, creds)
	if err != nil {
		return nil, err
	}

	user := "me"
	q := ""
	if since != nil {
		q = fmt.Sprintf("after:%d", since.Unix())
	}

	if maxResults <= 0 || maxResults > 500 {
		maxResults = 500 // Gmail API maximum
	}

	// Collect message ids across pages
	var ids []string
	pageToken := ""
	for int64(len(ids)) < maxResults {
		listQuery := srv.Users.Messages.List(user).MaxResults(maxResults - int64(len(ids)))
		if q != "" {
			listQuery = listQuery.Q(q)
		}
		if pageToken != "" {
			listQuery = listQuery.PageToken(pageToken)
		}

		resp, err := listQuery.Context(ctx).Do()
		if err != nil {
			return nil, mapGmailError(err)
		}
		for _, msg := range resp.Messages {
			ids = append(ids, msg.Id)
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	// Fetch full message details in parallel with a bounded semaphore
	type fetchResult struct {
		message *emaildomain.IncomingMessage
		err     error
	}

	resultChan := make(chan fetchResult, len(ids))
	semaphore := make(chan struct{}, 10)

	for _, id := range ids {
		go func(msgID string) {
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			fullMsg, err := srv.Users.Messages.Get(user, msgID).Format("full").Context(ctx).Do()
			if err != nil {
				resultChan <- fetchResult{nil, mapGmailError(err)}
				return
			}
			resultChan <- fetchResult{convertGmailMessage(fullMsg), nil}
		}(id)
	}

	messages := make([]*emaildomain.IncomingMessage, 0, len(ids))
	var fetchErr error
	for range ids {
		result := <-resultChan
		if result.err != nil {
			// Rate-limit errors abort the whole listing so the caller can back
			// off; anything else just drops the one message.
			if errors.Is(result.err, emaildomain.ErrRateLimited) {
				fetchErr = result.err
			}
			continue
		}
		messages = append(messages, result.message)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}

	// Parallel fetching returns messages in random order
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].ReceivedAt.Before(messages[j].ReceivedAt)
	})

	return messages, nil
}

// GetMessage fetches one message by provider id
func (s *Service) GetMessage(ctx context.Context, creds emaildomain.Credentials, externalID string) (*emaildomain.IncomingMessage, error) {
	srv, err := s.gmailService(ctx, creds)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", externalID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, mapGmailError(err)
	}
	return convertGmailMessage(msg), nil
}

// mapGmailError surfaces rate limits and missing messages as domain errors
func mapGmailError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return fmt.Errorf("%w: %v", emaildomain.ErrRateLimited, err)
		case apiErr.Code == 403 && strings.Contains(apiErr.Message, "rate"):
			return fmt.Errorf("%w: %v", emaildomain.ErrRateLimited, err)
		case apiErr.Code == 404:
			return fmt.Errorf("%w: %v", emaildomain.ErrMessageNotFound, err)
		}
	}
	return err
}

// Helper functions

func convertGmailMessage(msg *gmail.Message) *emaildomain.IncomingMessage {
	return &emaildomain.IncomingMessage{
		ExternalID: msg.Id,
		Subject:    getHeader(msg.Payload, "Subject"),
		From:       getHeader(msg.Payload, "From"),
		To:         getHeader(msg.Payload, "To"),
		ReceivedAt: time.Unix(msg.InternalDate/1000, 0),
		Labels:     msg.LabelIds,
		Payload:    convertPayload(msg.Payload),
	}
}

func getHeader(payload *gmail.MessagePart, name string) string {
	if payload == nil {
		return ""
	}
	for _, header := range payload.Headers {
		if header.Name == name {
			return header.Value
		}
	}
	return ""
}

// convertPayload maps the Gmail payload tree onto the decoder's Part tree
func convertPayload(part *gmail.MessagePart) *mailbody.Part {
	if part == nil {
		return nil
	}

	converted := &mailbody.Part{
		MimeType: part.MimeType,
		Filename: part.Filename,
	}
	if part.Body != nil {
		converted.Body = part.Body.Data
		converted.Size = part.Body.Size
	}
	for _, child := range part.Parts {
		if c := convertPayload(child); c != nil {
			converted.Parts = append(converted.Parts, c)
		}
	}
	return converted
}
