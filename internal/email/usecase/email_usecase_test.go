package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	authdomain "finmail-backend/internal/auth/domain"
	emaildomain "finmail-backend/internal/email/domain"
	txdomain "finmail-backend/internal/transaction/domain"
	txrepo "finmail-backend/internal/transaction/repository"
	txusecase "finmail-backend/internal/transaction/usecase"
	"finmail-backend/pkg/config"
	"finmail-backend/pkg/mailbody"
	"finmail-backend/pkg/mlservice"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeMessageRepo struct {
	mu         sync.Mutex
	byID       map[string]*emaildomain.Message
	byExternal map[string]string
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		byID:       make(map[string]*emaildomain.Message),
		byExternal: make(map[string]string),
	}
}

func (r *fakeMessageRepo) CreateIfNew(message *emaildomain.Message) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byExternal[message.ExternalID]; exists {
		return false, nil
	}
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	copied := *message
	r.byID[message.ID] = &copied
	r.byExternal[message.ExternalID] = message.ID
	return true, nil
}

func (r *fakeMessageRepo) GetByID(id string) (*emaildomain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	copied := *msg
	return &copied, nil
}

func (r *fakeMessageRepo) ListByUser(userID string, limit, offset int) ([]*emaildomain.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*emaildomain.Message
	for _, msg := range r.byID {
		if msg.UserID == userID {
			copied := *msg
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeMessageRepo) GetUnprocessed(userID string, limit int) ([]*emaildomain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*emaildomain.Message
	for _, msg := range r.byID {
		if msg.UserID == userID && !msg.Processed {
			copied := *msg
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) MarkProcessed(id string, classification emaildomain.Classification, confidence float64, processingError *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.byID[id]
	if !ok {
		return errors.New("message not found")
	}
	msg.Processed = true
	msg.Classification = classification
	msg.Confidence = confidence
	msg.ProcessingError = processingError
	return nil
}

type fakeSyncStateRepo struct {
	mu     sync.Mutex
	states map[string]*emaildomain.SyncState
}

func newFakeSyncStateRepo() *fakeSyncStateRepo {
	return &fakeSyncStateRepo{states: make(map[string]*emaildomain.SyncState)}
}

func (r *fakeSyncStateRepo) Get(userID string) (*emaildomain.SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[userID]
	if !ok {
		state = &emaildomain.SyncState{UserID: userID}
		r.states[userID] = state
	}
	copied := *state
	return &copied, nil
}

func (r *fakeSyncStateRepo) BeginSync(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[userID]
	if !ok {
		state = &emaildomain.SyncState{UserID: userID}
		r.states[userID] = state
	}
	if state.SyncInProgress {
		return emaildomain.ErrSyncInProgress
	}
	now := time.Now()
	state.SyncInProgress = true
	state.SyncStartedAt = &now
	return nil
}

func (r *fakeSyncStateRepo) FinishSync(userID string, syncError *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[userID]
	if !ok {
		return errors.New("no sync state")
	}
	now := time.Now()
	state.SyncInProgress = false
	state.SyncStartedAt = nil
	state.LastSyncedAt = &now
	state.LastError = syncError
	return nil
}

func (r *fakeSyncStateRepo) AddTotalMessages(userID string, n int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.states[userID]; ok {
		state.TotalMessages += n
	}
	return nil
}

func (r *fakeSyncStateRepo) IncrementTransactional(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.states[userID]; ok {
		state.TransactionalMessages++
	}
	return nil
}

func (r *fakeSyncStateRepo) ResetStale(olderThan time.Duration) (int64, error) {
	return 0, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*authdomain.User
}

func newFakeUserRepo(users ...*authdomain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*authdomain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(user *authdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByEmail(email string) (*authdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByID(id string) (*authdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *fakeUserRepo) Update(user *authdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

type fakeProvider struct {
	mu        sync.Mutex
	messages  []*emaildomain.IncomingMessage
	listErr   error
	calls     int
	lastSince *time.Time
}

func (p *fakeProvider) ListNewMessages(ctx context.Context, creds emaildomain.Credentials, since *time.Time, maxResults int64) ([]*emaildomain.IncomingMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.lastSince = since
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.messages, nil
}

func (p *fakeProvider) GetMessage(ctx context.Context, creds emaildomain.Credentials, externalID string) (*emaildomain.IncomingMessage, error) {
	for _, msg := range p.messages {
		if msg.ExternalID == externalID {
			return msg, nil
		}
	}
	return nil, emaildomain.ErrMessageNotFound
}

type fakeClassifier struct {
	results map[string]mlservice.ClassificationResult
}

func (c *fakeClassifier) Classify(ctx context.Context, text string) mlservice.ClassificationResult {
	if result, ok := c.results[text]; ok {
		return result
	}
	return mlservice.ClassificationResult{}
}

func (c *fakeClassifier) HealthCheck(ctx context.Context) mlservice.HealthStatus {
	return mlservice.HealthStatus{Status: "healthy"}
}

type fakeExtractor struct {
	candidates map[string][]mlservice.Candidate
	err        error
}

func (e *fakeExtractor) Extract(ctx context.Context, text string) ([]mlservice.Candidate, error) {
	if text == "" {
		return nil, mlservice.ErrEmptyContent
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.candidates[text], nil
}

func (e *fakeExtractor) HealthCheck(ctx context.Context) mlservice.HealthStatus {
	return mlservice.HealthStatus{Status: "healthy"}
}

// --- helpers ---

func testConfig() *config.Config {
	return &config.Config{
		SyncBatchSize:     10,
		ClassifyBatchSize: 5,
		ExtractBatchSize:  3,
		ClassifyPause:     0,
		ExtractPause:      0,
		SyncWorkers:       1,
	}
}

func plainPart(text string) *mailbody.Part {
	return &mailbody.Part{
		MimeType: "text/plain",
		Body:     base64.RawURLEncoding.EncodeToString([]byte(text)),
	}
}

func incoming(externalID, subject, body string) *emaildomain.IncomingMessage {
	return &emaildomain.IncomingMessage{
		ExternalID: externalID,
		Subject:    subject,
		From:       "billing@example.com",
		To:         "user@example.com",
		ReceivedAt: time.Now(),
		Labels:     []string{"INBOX"},
		Payload:    plainPart(body),
	}
}

type fixture struct {
	uc            EmailUsecase
	messageRepo   *fakeMessageRepo
	syncStateRepo *fakeSyncStateRepo
	provider      *fakeProvider
	classifier    *fakeClassifier
	extractor     *fakeExtractor
	txUsecase     txusecase.TransactionUsecase
	txRepo        *memTxRepo
}

// memTxRepo is the minimal transaction store the processor needs.
type memTxRepo struct {
	mu  sync.Mutex
	txs []*txdomain.Transaction
}

func (r *memTxRepo) Create(tx *txdomain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	copied := *tx
	r.txs = append(r.txs, &copied)
	return nil
}

func (r *memTxRepo) FindByID(id string) (*txdomain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.txs {
		if tx.ID == id {
			copied := *tx
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memTxRepo) FindByUserID(userID string, filter txrepo.ListFilter, limit, offset int) ([]*txdomain.Transaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*txdomain.Transaction
	for _, tx := range r.txs {
		if tx.UserID == userID {
			copied := *tx
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memTxRepo) Update(tx *txdomain.Transaction) error    { return nil }
func (r *memTxRepo) Delete(id string) error                   { return nil }
func (r *memTxRepo) DeleteByMessageID(messageID string) error { return nil }

func newFixture(t *testing.T, user *authdomain.User) *fixture {
	t.Helper()

	messageRepo := newFakeMessageRepo()
	syncStateRepo := newFakeSyncStateRepo()
	userRepo := newFakeUserRepo(user)
	provider := &fakeProvider{}
	classifier := &fakeClassifier{results: make(map[string]mlservice.ClassificationResult)}
	extractor := &fakeExtractor{candidates: make(map[string][]mlservice.Candidate)}
	txRepo := &memTxRepo{}
	txUc := txusecase.NewTransactionUsecase(txRepo)

	uc := NewEmailUsecase(messageRepo, syncStateRepo, userRepo, txUc, provider, provider, classifier, extractor, testConfig())

	return &fixture{
		uc:            uc,
		messageRepo:   messageRepo,
		syncStateRepo: syncStateRepo,
		provider:      provider,
		classifier:    classifier,
		extractor:     extractor,
		txUsecase:     txUc,
		txRepo:        txRepo,
	}
}

func gmailUser() *authdomain.User {
	return &authdomain.User{
		ID:          "user-1",
		Email:       "user@example.com",
		Provider:    "google",
		AccessToken: "token",
	}
}

// --- sync tests ---

func TestSyncMailboxStoresNewMessages(t *testing.T) {
	f := newFixture(t, gmailUser())
	f.provider.messages = []*emaildomain.IncomingMessage{
		incoming("ext-1", "Receipt", "You paid $10"),
		incoming("ext-2", "Newsletter", "Weekly digest"),
	}

	result, err := f.uc.SyncMailbox(context.Background(), "user-1", false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Stored)
	assert.Zero(t, result.Skipped)

	state, err := f.uc.GetSyncStatus("user-1")
	require.NoError(t, err)
	assert.False(t, state.SyncInProgress)
	assert.NotNil(t, state.LastSyncedAt)
	assert.EqualValues(t, 2, state.TotalMessages)
	assert.Nil(t, state.LastError)
}

func TestSyncMailboxDeduplicatesOnResync(t *testing.T) {
	f := newFixture(t, gmailUser())
	f.provider.messages = []*emaildomain.IncomingMessage{
		incoming("ext-1", "Receipt", "You paid $10"),
	}

	_, err := f.uc.SyncMailbox(context.Background(), "user-1", false)
	require.NoError(t, err)

	result, err := f.uc.SyncMailbox(context.Background(), "user-1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Fetched)
	assert.Zero(t, result.Stored)
	assert.Equal(t, 1, result.Skipped)

	state, _ := f.uc.GetSyncStatus("user-1")
	assert.EqualValues(t, 1, state.TotalMessages)
}

func TestSyncMailboxConflict(t *testing.T) {
	f := newFixture(t, gmailUser())
	require.NoError(t, f.syncStateRepo.BeginSync("user-1"))

	_, err := f.uc.SyncMailbox(context.Background(), "user-1", false)
	assert.ErrorIs(t, err, emaildomain.ErrSyncInProgress)
	assert.Zero(t, f.provider.calls)

	// The held lock survives the rejected attempt
	state, _ := f.syncStateRepo.Get("user-1")
	assert.True(t, state.SyncInProgress)
}

func TestSyncMailboxReleasesLockOnProviderError(t *testing.T) {
	f := newFixture(t, gmailUser())
	f.provider.listErr = errors.New("gmail unavailable")

	_, err := f.uc.SyncMailbox(context.Background(), "user-1", false)
	require.Error(t, err)

	state, _ := f.uc.GetSyncStatus("user-1")
	assert.False(t, state.SyncInProgress)
	require.NotNil(t, state.LastError)
	assert.Contains(t, *state.LastError, "gmail unavailable")
}

func TestSyncMailboxIncrementalUsesCursor(t *testing.T) {
	f := newFixture(t, gmailUser())

	_, err := f.uc.SyncMailbox(context.Background(), "user-1", false)
	require.NoError(t, err)
	assert.Nil(t, f.provider.lastSince)

	_, err = f.uc.SyncMailbox(context.Background(), "user-1", false)
	require.NoError(t, err)
	assert.NotNil(t, f.provider.lastSince)

	// Full resync ignores the cursor
	_, err = f.uc.SyncMailbox(context.Background(), "user-1", true)
	require.NoError(t, err)
	assert.Nil(t, f.provider.lastSince)
}

func TestSyncMailboxUnknownUser(t *testing.T) {
	f := newFixture(t, gmailUser())
	_, err := f.uc.SyncMailbox(context.Background(), "nobody", false)
	assert.Error(t, err)
}

// --- processing tests ---

func TestProcessUnprocessedClassifiesAndExtracts(t *testing.T) {
	f := newFixture(t, gmailUser())
	f.provider.messages = []*emaildomain.IncomingMessage{
		incoming("ext-1", "Receipt", "You paid $25.00 at Coffee Shop"),
		incoming("ext-2", "Newsletter", "Weekly digest"),
	}
	f.classifier.results["You paid $25.00 at Coffee Shop"] = mlservice.ClassificationResult{IsTransactional: true, Confidence: 0.9}
	merchant := "Coffee Shop"
	f.extractor.candidates["You paid $25.00 at Coffee Shop"] = []mlservice.Candidate{
		{Amount: 25.0, Type: "purchase", Merchant: &merchant},
	}

	_, err := f.uc.SyncMailbox(context.Background(), "user-1", false)
	require.NoError(t, err)

	result, err := f.uc.ProcessUnprocessed(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Transactional)
	assert.Equal(t, 1, result.TransactionsCreated)
	assert.Zero(t, result.Errors)

	// Both messages are processed, with the right verdicts
	unprocessed, _ := f.messageRepo.GetUnprocessed("user-1", 0)
	assert.Empty(t, unprocessed)

	txs, total, err := f.txUsecase.GetUserTransactions("user-1", txrepo.ListFilter{}, 50, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.InDelta(t, 25.0, txs[0].Amount, 1e-9)
	assert.Equal(t, txdomain.TypePurchase, txs[0].Type)

	state, _ := f.uc.GetSyncStatus("user-1")
	assert.EqualValues(t, 1, state.TransactionalMessages)
}

func TestProcessUnprocessedDegradedClassifierStillMarksProcessed(t *testing.T) {
	f := newFixture(t, gmailUser())
	f.provider.messages = []*emaildomain.IncomingMessage{
		incoming("ext-1", "Hello", "classifier cannot reach this"),
	}
	f.classifier.results["classifier cannot reach this"] = mlservice.ClassificationResult{Err: "service unavailable"}

	_, err := f.uc.SyncMailbox(context.Background(), "user-1", false)
	require.NoError(t, err)

	result, err := f.uc.ProcessUnprocessed(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Zero(t, result.Transactional)

	messages, _, _ := f.uc.GetMessages("user-1", 50, 0)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].Processed)
	assert.Equal(t, emaildomain.ClassificationNonTransactional, messages[0].Classification)
	require.NotNil(t, messages[0].ProcessingError)
	assert.Equal(t, "service unavailable", *messages[0].ProcessingError)
}

func TestProcessUnprocessedExtractionFailureIsCounted(t *testing.T) {
	f := newFixture(t, gmailUser())
	f.provider.messages = []*emaildomain.IncomingMessage{
		incoming("ext-1", "Receipt", "charged $5"),
	}
	f.classifier.results["charged $5"] = mlservice.ClassificationResult{IsTransactional: true, Confidence: 0.8}
	f.extractor.err = errors.New("extractor down")

	_, err := f.uc.SyncMailbox(context.Background(), "user-1", false)
	require.NoError(t, err)

	result, err := f.uc.ProcessUnprocessed(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Transactional)
	assert.Zero(t, result.TransactionsCreated)
	assert.Equal(t, 1, result.Errors)

	// The message stays processed despite the failed extraction
	unprocessed, _ := f.messageRepo.GetUnprocessed("user-1", 0)
	assert.Empty(t, unprocessed)
}

func TestProcessUnprocessedNothingToDo(t *testing.T) {
	f := newFixture(t, gmailUser())
	result, err := f.uc.ProcessUnprocessed(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Zero(t, result.Processed)
}

// --- access tests ---

func TestGetMessageByIDOwnerCheck(t *testing.T) {
	f := newFixture(t, gmailUser())
	f.provider.messages = []*emaildomain.IncomingMessage{
		incoming("ext-1", "Receipt", "You paid $10"),
	}
	_, err := f.uc.SyncMailbox(context.Background(), "user-1", false)
	require.NoError(t, err)

	messages, _, _ := f.uc.GetMessages("user-1", 50, 0)
	require.Len(t, messages, 1)

	_, err = f.uc.GetMessageByID("user-1", messages[0].ID)
	assert.NoError(t, err)

	_, err = f.uc.GetMessageByID("intruder", messages[0].ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.uc.GetMessageByID("user-1", "missing")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestEnqueueSyncQueueFull(t *testing.T) {
	f := newFixture(t, gmailUser())

	// The queue accepts jobs while there is room
	assert.True(t, f.uc.EnqueueSync("user-1", false))
}
