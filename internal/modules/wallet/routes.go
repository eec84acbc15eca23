package wallet

import "github.com/gin-gonic/gin"

// RegisterRoutes expects rg to be behind JWTAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	wallets := rg.Group("/wallets")
	{
		wallets.GET("/me", h.GetMyWallet)
		wallets.GET("/me/transactions", h.ListMyTransactions)
		wallets.POST("/me/withdraw", h.WithdrawFromMyWallet)
	}
}
