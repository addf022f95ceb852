package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	authrepo "finmail-backend/internal/auth/repository"
	"finmail-backend/internal/email/usecase"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// GmailNotification is the payload Gmail publishes on mailbox changes.
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Service listens on a Pub/Sub subscription for Gmail push notifications and
// enqueues an incremental sync for the affected user.
type Service struct {
	pubsubClient *pubsub.Client
	userRepo     authrepo.UserRepository
	emailUsecase usecase.EmailUsecase
	projectID    string
	topicName    string
	subName      string

	// Deduplication: track last historyId per user to avoid duplicate syncs
	mu            sync.Mutex
	lastHistoryID map[string]uint64
}

func NewService(projectID, topicName string, userRepo authrepo.UserRepository, emailUsecase usecase.EmailUsecase, credentialsFile string) (*Service, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &Service{
		pubsubClient:  client,
		userRepo:      userRepo,
		emailUsecase:  emailUsecase,
		projectID:     projectID,
		topicName:     topicName,
		subName:       topicName + "-sub", // Convention: topic-sub
		lastHistoryID: make(map[string]uint64),
	}, nil
}

func (s *Service) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting notification service with topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic %s does not exist, cannot create subscription", s.topicName)
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(msg)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

func (s *Service) handleMessage(msg *pubsub.Message) {
	var notification GmailNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return
	}

	log.Printf("[PubSub] Notification for %s (historyId: %d)", notification.EmailAddress, notification.HistoryID)

	user, err := s.userRepo.FindByEmail(notification.EmailAddress)
	if err != nil {
		log.Printf("[PubSub] Error finding user by email %s: %v", notification.EmailAddress, err)
		return
	}
	if user == nil {
		log.Printf("[PubSub] User not found for email: %s", notification.EmailAddress)
		return
	}

	s.mu.Lock()
	lastHID, seen := s.lastHistoryID[user.ID]
	if seen && notification.HistoryID <= lastHID {
		s.mu.Unlock()
		log.Printf("[PubSub] Skipping duplicate notification for user %s (historyId %d <= last %d)", user.ID, notification.HistoryID, lastHID)
		return
	}
	s.lastHistoryID[user.ID] = notification.HistoryID
	s.mu.Unlock()

	if !s.emailUsecase.EnqueueSync(user.ID, false) {
		log.Printf("[PubSub] Sync queue full, dropping notification for user %s", user.ID)
	}
}
