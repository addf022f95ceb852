package imap

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	emaildomain "finmail-backend/internal/email/domain"
	"finmail-backend/pkg/mailbody"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
)

// Service implements domain.MailProvider over IMAP for accounts without
// Google OAuth.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) connect(creds emaildomain.Credentials) (*client.Client, error) {
	if creds.IMAPHost == "" {
		return nil, fmt.Errorf("IMAP host not configured")
	}

	c, err := client.DialTLS(creds.IMAPHost, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to IMAP server: %w", err)
	}

	if err := c.Login(creds.IMAPUsername, creds.IMAPPassword); err != nil {
		c.Logout()
		return nil, fmt.Errorf("IMAP login failed: %w", err)
	}
	return c, nil
}

// ListNewMessages fetches INBOX messages received after since, oldest first.
func (s *Service) ListNewMessages(ctx context.Context, creds emaildomain.Credentials, since *time.Time, maxResults int64) ([]*emaildomain.IncomingMessage, error) {
	c, err := s.connect(creds)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("unable to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	if since != nil {
		criteria.Since = *since
	}

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("IMAP search failed: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if maxResults > 0 && int64(len(uids)) > maxResults {
		// UIDs ascend with arrival; keep the newest window
		uids = uids[int64(len(uids))-maxResults:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	fetched := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, fetched)
	}()

	var messages []*emaildomain.IncomingMessage
	for msg := range fetched {
		incoming, err := convertIMAPMessage(msg, section)
		if err != nil {
			log.Printf("[IMAP] Failed to convert message uid=%d: %v", msg.Uid, err)
			continue
		}
		messages = append(messages, incoming)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("IMAP fetch failed: %w", err)
	}

	return messages, nil
}

// GetMessage fetches one message by UID
func (s *Service) GetMessage(ctx context.Context, creds emaildomain.Credentials, externalID string) (*emaildomain.IncomingMessage, error) {
	uid, err := strconv.ParseUint(externalID, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid IMAP uid %q", emaildomain.ErrMessageNotFound, externalID)
	}

	c, err := s.connect(creds)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("unable to select INBOX: %w", err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	fetched := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, fetched)
	}()

	var result *emaildomain.IncomingMessage
	for msg := range fetched {
		if converted, err := convertIMAPMessage(msg, section); err == nil {
			result = converted
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("IMAP fetch failed: %w", err)
	}
	if result == nil {
		return nil, emaildomain.ErrMessageNotFound
	}
	return result, nil
}

func convertIMAPMessage(msg *imap.Message, section *imap.BodySectionName) (*emaildomain.IncomingMessage, error) {
	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("server returned no body")
	}

	incoming := &emaildomain.IncomingMessage{
		ExternalID: strconv.FormatUint(uint64(msg.Uid), 10),
		ReceivedAt: msg.InternalDate,
	}
	if msg.Envelope != nil {
		incoming.Subject = msg.Envelope.Subject
		incoming.From = formatAddresses(msg.Envelope.From)
		incoming.To = formatAddresses(msg.Envelope.To)
		if incoming.ReceivedAt.IsZero() {
			incoming.ReceivedAt = msg.Envelope.Date
		}
	}

	payload, err := buildPayload(body)
	if err != nil {
		return nil, err
	}
	incoming.Payload = payload

	return incoming, nil
}

// buildPayload reads the MIME structure into the decoder's Part tree. The
// decoder expects base64url-encoded bodies (the Gmail wire format), so each
// part's already-decoded text is re-encoded on the way in.
func buildPayload(r io.Reader) (*mailbody.Part, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to parse message: %w", err)
	}

	root := &mailbody.Part{MimeType: "multipart/mixed"}
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("[IMAP] Skipping unreadable part: %v", err)
			continue
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			data, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			root.Parts = append(root.Parts, &mailbody.Part{
				MimeType: contentType,
				Body:     base64.RawURLEncoding.EncodeToString(data),
				Size:     int64(len(data)),
			})
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			data, _ := io.ReadAll(p.Body)
			root.Parts = append(root.Parts, &mailbody.Part{
				MimeType: contentType,
				Filename: filename,
				Size:     int64(len(data)),
			})
		}
	}

	return root, nil
}

func formatAddresses(addrs []*imap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	addr := addrs[0]
	email := addr.MailboxName + "@" + addr.HostName
	if addr.PersonalName != "" {
		return fmt.Sprintf("%s <%s>", addr.PersonalName, email)
	}
	return email
}
