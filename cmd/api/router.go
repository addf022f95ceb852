package api

import (
	"net/http"

	"finmail-backend/internal/auth/delivery"
	authUsecase "finmail-backend/internal/auth/usecase"
	emailDelivery "finmail-backend/internal/email/delivery"
	emailUsecase "finmail-backend/internal/email/usecase"
	txDelivery "finmail-backend/internal/transaction/delivery"
	txUsecase "finmail-backend/internal/transaction/usecase"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUc authUsecase.AuthUsecase, emailUc emailUsecase.EmailUsecase, txUc txUsecase.TransactionUsecase) {
	authHandler := delivery.NewAuthHandler(authUc)
	emailHandler := emailDelivery.NewEmailHandler(emailUc)
	txHandler := txDelivery.NewTransactionHandler(txUc)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.POST("/google", delivery.AuthMiddleware(authUc), authHandler.ConnectGoogle)
			auth.POST("/imap", delivery.AuthMiddleware(authUc), authHandler.ConnectIMAP)
			auth.GET("/me", delivery.AuthMiddleware(authUc), authHandler.Me)
		}

		// Sync and processing routes (protected)
		sync := api.Group("/sync")
		sync.Use(delivery.AuthMiddleware(authUc))
		{
			sync.POST("", emailHandler.TriggerSync)
			sync.GET("/status", emailHandler.GetSyncStatus)
		}

		api.POST("/process", delivery.AuthMiddleware(authUc), emailHandler.TriggerProcessing)

		// Message routes (protected)
		messages := api.Group("/messages")
		messages.Use(delivery.AuthMiddleware(authUc))
		{
			messages.GET("", emailHandler.GetMessages)
			messages.GET("/:id", emailHandler.GetMessageByID)
		}

		// Transaction routes (protected)
		transactions := api.Group("/transactions")
		transactions.Use(delivery.AuthMiddleware(authUc))
		{
			transactions.GET("", txHandler.GetTransactions)
			transactions.GET("/:id", txHandler.GetTransactionByID)
			transactions.PATCH("/:id", txHandler.UpdateTransaction)
			transactions.DELETE("/:id", txHandler.DeleteTransaction)
		}

		// Downstream ML service health (protected)
		api.GET("/services/health", delivery.AuthMiddleware(authUc), emailHandler.ServicesHealth)
	}
}
