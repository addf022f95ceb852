package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	authrepo "finmail-backend/internal/auth/repository"
	emaildomain "finmail-backend/internal/email/domain"
	"finmail-backend/internal/email/repository"
	txusecase "finmail-backend/internal/transaction/usecase"
	"finmail-backend/pkg/batch"
	"finmail-backend/pkg/config"
	"finmail-backend/pkg/mailbody"
	"finmail-backend/pkg/mlservice"

	"golang.org/x/oauth2"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrUnauthorized    = errors.New("unauthorized")
)

// syncPause separates groups of message persists during a sync run.
const syncPause = 100 * time.Millisecond

// emailUsecase implements EmailUsecase interface
type emailUsecase struct {
	messageRepo   repository.MessageRepository
	syncStateRepo repository.SyncStateRepository
	userRepo      authrepo.UserRepository
	txUsecase     txusecase.TransactionUsecase

	gmailProvider emaildomain.MailProvider
	imapProvider  emaildomain.MailProvider

	classifier ClassifierService
	extractor  ExtractorService

	config   *config.Config
	jobQueue chan SyncJob
}

// NewEmailUsecase creates a new instance of emailUsecase
func NewEmailUsecase(
	messageRepo repository.MessageRepository,
	syncStateRepo repository.SyncStateRepository,
	userRepo authrepo.UserRepository,
	txUsecase txusecase.TransactionUsecase,
	gmailProvider emaildomain.MailProvider,
	imapProvider emaildomain.MailProvider,
	classifier ClassifierService,
	extractor ExtractorService,
	cfg *config.Config,
) EmailUsecase {
	uc := &emailUsecase{
		messageRepo:   messageRepo,
		syncStateRepo: syncStateRepo,
		userRepo:      userRepo,
		txUsecase:     txUsecase,
		gmailProvider: gmailProvider,
		imapProvider:  imapProvider,
		classifier:    classifier,
		extractor:     extractor,
		config:        cfg,
		jobQueue:      make(chan SyncJob, 500),
	}
	uc.startSyncWorkers(cfg.SyncWorkers)
	return uc
}

// SyncMailbox runs one sync for the user: take the per-user lock, fetch
// messages newer than the cursor, persist the new ones in batches, bump the
// counter, release the lock. The lock release is deferred so every exit path
// clears it.
func (u *emailUsecase) SyncMailbox(ctx context.Context, userID string, fullResync bool) (result *SyncResult, err error) {
	provider, creds, err := u.providerFor(userID)
	if err != nil {
		return nil, err
	}

	state, err := u.syncStateRepo.Get(userID)
	if err != nil {
		return nil, err
	}

	if err := u.syncStateRepo.BeginSync(userID); err != nil {
		return nil, err
	}
	defer func() {
		var syncErr *string
		if err != nil {
			msg := err.Error()
			syncErr = &msg
		}
		if finishErr := u.syncStateRepo.FinishSync(userID, syncErr); finishErr != nil {
			log.Printf("[Sync] Failed to release sync lock for user %s: %v", userID, finishErr)
		}
	}()

	var since *time.Time
	if !fullResync {
		since = state.LastSyncedAt
	}

	incoming, err := provider.ListNewMessages(ctx, creds, since, 500)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	log.Printf("[Sync] Fetched %d messages for user %s (full=%v)", len(incoming), userID, fullResync)

	results := batch.Process(ctx, incoming, u.config.SyncBatchSize, syncPause,
		func(ctx context.Context, msg *emaildomain.IncomingMessage) (bool, error) {
			return u.persistIncoming(userID, msg)
		})

	result = &SyncResult{Fetched: len(incoming)}
	for _, r := range results {
		switch {
		case r.Err != nil:
			result.Failed++
			log.Printf("[Sync] Failed to store message for user %s: %v", userID, r.Err)
		case r.Value:
			result.Stored++
		default:
			result.Skipped++
		}
	}

	if err := u.syncStateRepo.AddTotalMessages(userID, int64(result.Stored)); err != nil {
		log.Printf("[Sync] Failed to update message counter for user %s: %v", userID, err)
	}

	log.Printf("[Sync] Completed for user %s: stored=%d skipped=%d failed=%d",
		userID, result.Stored, result.Skipped, result.Failed)
	return result, nil
}

// persistIncoming decodes one fetched message and stores it unless its
// external id is already known.
func (u *emailUsecase) persistIncoming(userID string, incoming *emaildomain.IncomingMessage) (bool, error) {
	htmlBody, plainBody := mailbody.Decode(incoming.Payload)

	labels, _ := json.Marshal(incoming.Labels)
	attachments, _ := json.Marshal(mailbody.CollectAttachments(incoming.Payload))

	message := &emaildomain.Message{
		ExternalID:     incoming.ExternalID,
		UserID:         userID,
		Subject:        incoming.Subject,
		From:           incoming.From,
		To:             incoming.To,
		ReceivedAt:     incoming.ReceivedAt,
		RawBody:        htmlBody,
		PlainBody:      plainBody,
		Labels:         string(labels),
		Attachments:    string(attachments),
		Classification: emaildomain.ClassificationUnknown,
	}

	return u.messageRepo.CreateIfNew(message)
}

// ProcessUnprocessed classifies every unprocessed message and extracts
// transactions from the transactional ones. A message is always marked
// processed, even when classification degrades - its error is recorded on the
// row instead of leaving the message stuck.
func (u *emailUsecase) ProcessUnprocessed(ctx context.Context, userID string) (*ProcessResult, error) {
	messages, err := u.messageRepo.GetUnprocessed(userID, 0)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return &ProcessResult{}, nil
	}
	log.Printf("[Processor] Processing %d messages for user %s", len(messages), userID)

	result := &ProcessResult{}

	classifyResults := batch.Process(ctx, messages, u.config.ClassifyBatchSize, u.config.ClassifyPause,
		func(ctx context.Context, msg *emaildomain.Message) (bool, error) {
			return u.classifyMessage(ctx, msg)
		})

	var transactional []*emaildomain.Message
	for i, r := range classifyResults {
		if r.Err != nil {
			// Persistence failure, not a model failure; the message stays
			// unprocessed and will be retried on the next run.
			result.Errors++
			log.Printf("[Processor] Failed to persist classification for message %s: %v", messages[i].ID, r.Err)
			continue
		}
		result.Processed++
		if r.Value {
			result.Transactional++
			transactional = append(transactional, messages[i])
		}
	}

	if len(transactional) > 0 {
		extractResults := batch.Process(ctx, transactional, u.config.ExtractBatchSize, u.config.ExtractPause,
			func(ctx context.Context, msg *emaildomain.Message) (int, error) {
				return u.extractTransactions(ctx, msg)
			})

		for i, r := range extractResults {
			if r.Err != nil {
				// Extraction failures are terminal for this run: the message
				// stays processed, the failure is logged only.
				result.Errors++
				log.Printf("[Processor] Extraction failed for message %s: %v", transactional[i].ID, r.Err)
				continue
			}
			result.TransactionsCreated += r.Value
		}
	}

	log.Printf("[Processor] Done for user %s: processed=%d transactional=%d transactions=%d errors=%d",
		userID, result.Processed, result.Transactional, result.TransactionsCreated, result.Errors)
	return result, nil
}

// classifyMessage runs the classifier over one message's decoded text and
// marks it processed. Returns whether the message is transactional.
func (u *emailUsecase) classifyMessage(ctx context.Context, msg *emaildomain.Message) (bool, error) {
	text := msg.PlainBody
	if text == "" {
		text = msg.Subject
	}

	classification := u.classifier.Classify(ctx, text)

	verdict := emaildomain.ClassificationNonTransactional
	if classification.IsTransactional {
		verdict = emaildomain.ClassificationTransactional
	}

	var procErr *string
	if classification.Err != "" {
		verdict = emaildomain.ClassificationNonTransactional
		procErr = &classification.Err
	}

	if err := u.messageRepo.MarkProcessed(msg.ID, verdict, classification.Confidence, procErr); err != nil {
		return false, err
	}

	if classification.IsTransactional {
		if err := u.syncStateRepo.IncrementTransactional(msg.UserID); err != nil {
			log.Printf("[Processor] Failed to bump transactional counter for user %s: %v", msg.UserID, err)
		}
	}

	return classification.IsTransactional, nil
}

// extractTransactions runs the extractor over one transactional message and
// persists every surviving candidate. Returns the number of transactions
// created.
func (u *emailUsecase) extractTransactions(ctx context.Context, msg *emaildomain.Message) (int, error) {
	candidates, err := u.extractor.Extract(ctx, msg.PlainBody)
	if err != nil {
		if errors.Is(err, mlservice.ErrEmptyContent) {
			return 0, nil
		}
		return 0, err
	}

	created := 0
	for _, candidate := range candidates {
		if _, err := u.txUsecase.CreateFromCandidate(msg.UserID, msg.ID, candidate); err != nil {
			log.Printf("[Processor] Failed to store transaction for message %s: %v", msg.ID, err)
			continue
		}
		created++
	}
	return created, nil
}

// providerFor resolves the user's mail provider and credentials.
func (u *emailUsecase) providerFor(userID string) (emaildomain.MailProvider, emaildomain.Credentials, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, emaildomain.Credentials{}, err
	}
	if user == nil {
		return nil, emaildomain.Credentials{}, errors.New("user not found")
	}

	switch user.Provider {
	case "imap":
		if u.imapProvider == nil {
			return nil, emaildomain.Credentials{}, errors.New("IMAP provider not configured")
		}
		return u.imapProvider, emaildomain.Credentials{
			IMAPHost:     user.IMAPHost,
			IMAPUsername: user.Email,
			IMAPPassword: user.IMAPPassword,
		}, nil
	default:
		if u.gmailProvider == nil {
			return nil, emaildomain.Credentials{}, errors.New("gmail provider not configured")
		}
		creds := emaildomain.Credentials{
			AccessToken:  user.AccessToken,
			RefreshToken: user.RefreshToken,
			OnTokenRefresh: func(token *oauth2.Token) error {
				user.AccessToken = token.AccessToken
				if token.RefreshToken != "" {
					user.RefreshToken = token.RefreshToken
				}
				return u.userRepo.Update(user)
			},
		}
		return u.gmailProvider, creds, nil
	}
}

func (u *emailUsecase) GetSyncStatus(userID string) (*emaildomain.SyncState, error) {
	return u.syncStateRepo.Get(userID)
}

func (u *emailUsecase) GetMessages(userID string, limit, offset int) ([]*emaildomain.Message, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return u.messageRepo.ListByUser(userID, limit, offset)
}

func (u *emailUsecase) GetMessageByID(userID, messageID string) (*emaildomain.Message, error) {
	message, err := u.messageRepo.GetByID(messageID)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, ErrMessageNotFound
	}
	if message.UserID != userID {
		return nil, ErrUnauthorized
	}
	return message, nil
}

func (u *emailUsecase) ServiceHealth(ctx context.Context) map[string]mlservice.HealthStatus {
	return map[string]mlservice.HealthStatus{
		"classifier": u.classifier.HealthCheck(ctx),
		"extractor":  u.extractor.HealthCheck(ctx),
	}
}
