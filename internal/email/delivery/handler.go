package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"finmail-backend/internal/email/dto"
	"finmail-backend/internal/email/usecase"

	"github.com/gin-gonic/gin"
)

// EmailHandler handles mailbox sync and message HTTP requests
type EmailHandler struct {
	emailUsecase usecase.EmailUsecase
}

// NewEmailHandler creates a new EmailHandler
func NewEmailHandler(emailUsecase usecase.EmailUsecase) *EmailHandler {
	return &EmailHandler{
		emailUsecase: emailUsecase,
	}
}

// TriggerSync submits a background sync for the authenticated user
// POST /api/sync
func (h *EmailHandler) TriggerSync(c *gin.Context) {
	userID := c.GetString("userID")

	var req dto.SyncRequest
	_ = c.ShouldBindJSON(&req) // Body is optional

	state, err := h.emailUsecase.GetSyncStatus(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if state.SyncInProgress {
		c.JSON(http.StatusConflict, gin.H{"error": "sync already in progress"})
		return
	}

	if !h.emailUsecase.EnqueueSync(userID, req.Full) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sync queue full, try again later"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "sync started"})
}

// GetSyncStatus returns the user's sync cursor
// GET /api/sync/status
func (h *EmailHandler) GetSyncStatus(c *gin.Context) {
	userID := c.GetString("userID")

	state, err := h.emailUsecase.GetSyncStatus(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, state)
}

// TriggerProcessing runs the processing pass synchronously and returns counts
// POST /api/process
func (h *EmailHandler) TriggerProcessing(c *gin.Context) {
	userID := c.GetString("userID")

	result, err := h.emailUsecase.ProcessUnprocessed(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetMessages lists stored messages for the authenticated user
// GET /api/messages?limit=50&offset=0
func (h *EmailHandler) GetMessages(c *gin.Context) {
	userID := c.GetString("userID")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, total, err := h.emailUsecase.GetMessages(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := dto.MessagesResponse{
		Messages: make([]*dto.MessageResponse, 0, len(messages)),
		Limit:    limit,
		Offset:   offset,
		Total:    total,
	}
	for _, message := range messages {
		resp.Messages = append(resp.Messages, dto.NewMessageResponse(message))
	}

	c.JSON(http.StatusOK, resp)
}

// GetMessageByID returns one stored message
// GET /api/messages/:id
func (h *EmailHandler) GetMessageByID(c *gin.Context) {
	userID := c.GetString("userID")
	messageID := c.Param("id")

	message, err := h.emailUsecase.GetMessageByID(userID, messageID)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		case errors.Is(err, usecase.ErrUnauthorized):
			c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, dto.NewMessageResponse(message))
}

// ServicesHealth probes the model services
// GET /api/services/health
func (h *EmailHandler) ServicesHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.emailUsecase.ServiceHealth(c.Request.Context()))
}
