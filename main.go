package main

import (
	"context"
	"log"
	"strings"

	api "finmail-backend/cmd/api"
	authdomain "finmail-backend/internal/auth/domain"
	authRepo "finmail-backend/internal/auth/repository"
	authUsecase "finmail-backend/internal/auth/usecase"
	emaildomain "finmail-backend/internal/email/domain"
	emailRepo "finmail-backend/internal/email/repository"
	emailUsecase "finmail-backend/internal/email/usecase"
	"finmail-backend/internal/notification"
	txdomain "finmail-backend/internal/transaction/domain"
	txRepo "finmail-backend/internal/transaction/repository"
	txUsecase "finmail-backend/internal/transaction/usecase"
	"finmail-backend/pkg/config"
	"finmail-backend/pkg/database"
	"finmail-backend/pkg/gmail"
	"finmail-backend/pkg/imap"
	"finmail-backend/pkg/mlservice"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&authdomain.User{}, &emaildomain.Message{}, &emaildomain.SyncState{}, &txdomain.Transaction{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	messageRepo := emailRepo.NewMessageRepository(db)
	syncStateRepo := emailRepo.NewSyncStateRepository(db)
	transactionRepo := txRepo.NewGormTransactionRepository(db)

	// Recover sync locks left behind by a previous crash
	if reset, err := syncStateRepo.ResetStale(cfg.StaleSyncAfter); err != nil {
		log.Printf("[Startup] Failed to reset stale sync locks: %v", err)
	} else if reset > 0 {
		log.Printf("[Startup] Reset %d stale sync lock(s)", reset)
	}

	// Initialize mail providers
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	imapService := imap.NewService()

	// Initialize ML service clients
	classifier := mlservice.NewClassifier(cfg.ClassifierURL, cfg.ClassifierTimeout, cfg.ServiceRetries, cfg.RetryBaseDelay)
	extractor := mlservice.NewExtractor(cfg.ExtractorURL, cfg.ExtractorTimeout, cfg.ServiceRetries, cfg.RetryBaseDelay)

	// Initialize use cases (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, cfg)
	txUsecaseInstance := txUsecase.NewTransactionUsecase(transactionRepo)
	emailUsecaseInstance := emailUsecase.NewEmailUsecase(messageRepo, syncStateRepo, userRepo, txUsecaseInstance, gmailService, imapService, classifier, extractor, cfg)

	// Initialize Notification Service (Pub/Sub)
	// Only start if project ID is configured
	if cfg.GoogleProjectID != "" {
		// Extract short topic name from full resource name if necessary
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}

		notifService, err := notification.NewService(cfg.GoogleProjectID, topicName, userRepo, emailUsecaseInstance, cfg.GoogleCredentials)
		if err != nil {
			log.Printf("[PubSub] Failed to initialize notification service: %v", err)
		} else {
			go notifService.Start(context.Background())
		}
	} else {
		log.Printf("[PubSub] GoogleProjectID not configured, push notifications disabled")
	}

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecaseInstance, emailUsecaseInstance, txUsecaseInstance, cfg)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
