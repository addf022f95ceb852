package delivery

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"finmail-backend/internal/transaction/domain"
	"finmail-backend/internal/transaction/repository"
	"finmail-backend/internal/transaction/usecase"

	"github.com/gin-gonic/gin"
)

// TransactionHandler handles transaction-related HTTP requests
type TransactionHandler struct {
	txUsecase usecase.TransactionUsecase
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(txUsecase usecase.TransactionUsecase) *TransactionHandler {
	return &TransactionHandler{
		txUsecase: txUsecase,
	}
}

// GetTransactions returns transactions for the authenticated user
// GET /api/transactions?type=purchase&verified=true&from=2024-01-01&to=2024-12-31&limit=50&offset=0
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	userID := c.GetString("userID")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var filter repository.ListFilter
	if t := c.Query("type"); t != "" {
		normalized := domain.NormalizeType(t)
		filter.Type = &normalized
	}
	if v := c.Query("verified"); v != "" {
		verified := v == "true"
		filter.Verified = &verified
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filter.To = &t
		}
	}

	txs, total, err := h.txUsecase.GetUserTransactions(userID, filter, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": txs,
		"total":        total,
		"limit":        limit,
		"offset":       offset,
	})
}

// GetTransactionByID returns a specific transaction
// GET /api/transactions/:id
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	userID := c.GetString("userID")
	txID := c.Param("id")

	tx, err := h.txUsecase.GetTransactionByID(userID, txID)
	if err != nil {
		respondUsecaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// UpdateTransaction applies an owner edit
// PATCH /api/transactions/:id
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID := c.GetString("userID")
	txID := c.Param("id")

	var req usecase.TransactionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.txUsecase.UpdateTransaction(userID, txID, req)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) || errors.Is(err, usecase.ErrUnauthorized) {
			respondUsecaseError(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tx)
}

// DeleteTransaction deletes a transaction
// DELETE /api/transactions/:id
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID := c.GetString("userID")
	txID := c.Param("id")

	if err := h.txUsecase.DeleteTransaction(userID, txID); err != nil {
		respondUsecaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}

func respondUsecaseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
	case errors.Is(err, usecase.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
