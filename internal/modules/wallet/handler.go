package wallet

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"staybook/internal/middleware"
	"staybook/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GetMyWallet(c *gin.Context) {
	account, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	w, err := h.service.GetWallet(c.Request.Context(), account)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"wallet": w})
}

func (h *Handler) ListMyTransactions(c *gin.Context) {
	account, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	var q TransactionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query")
		return
	}

	txns, err := h.service.ListTransactions(c.Request.Context(), account, q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"transactions": txns})
}

func (h *Handler) WithdrawFromMyWallet(c *gin.Context) {
	account, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	var body withdrawBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	res, err := h.service.Withdraw(c.Request.Context(), WithdrawRequest{
		AccountID:   account,
		Amount:      body.Amount,
		Description: body.Description,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}
