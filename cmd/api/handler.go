package api

import (
	authUsecase "finmail-backend/internal/auth/usecase"
	emailUsecase "finmail-backend/internal/email/usecase"
	txUsecase "finmail-backend/internal/transaction/usecase"
	"finmail-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase  authUsecase.AuthUsecase
	emailUsecase emailUsecase.EmailUsecase
	txUsecase    txUsecase.TransactionUsecase
	config       *config.Config
}

func NewHandler(authUc authUsecase.AuthUsecase, emailUc emailUsecase.EmailUsecase, txUc txUsecase.TransactionUsecase, cfg *config.Config) *Handler {
	return &Handler{
		authUsecase:  authUc,
		emailUsecase: emailUc,
		txUsecase:    txUc,
		config:       cfg,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.emailUsecase, h.txUsecase)

	return r.Run(addr)
}
