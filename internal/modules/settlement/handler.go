package settlement

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"staybook/internal/middleware"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/jwt"
	"staybook/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes expects rg to be behind JWTAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	settlements := rg.Group("/settlements")
	{
		settlements.GET("", middleware.PartnerOnly(), h.ListSettlements)
		settlements.POST("", middleware.AdminOnly(), h.CreateSettlement)
		settlements.POST("/:id/process", middleware.AdminOnly(), h.transition(ActionProcess))
		settlements.POST("/:id/complete", middleware.AdminOnly(), h.transition(ActionComplete))
		settlements.POST("/:id/fail", middleware.AdminOnly(), h.transition(ActionFail))
		settlements.POST("/:id/cancel", middleware.AdminOnly(), h.transition(ActionCancel))
	}
}

func (h *Handler) CreateSettlement(c *gin.Context) {
	var body settleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	start, err1 := time.Parse(time.DateOnly, body.PeriodStart)
	end, err2 := time.Parse(time.DateOnly, body.PeriodEnd)
	if err1 != nil || err2 != nil {
		response.FromError(c, ErrInvalidDate)
		return
	}
	account, _ := middleware.AccountID(c)

	st, err := h.service.Settle(c.Request.Context(), SettleRequest{
		WalletID:    body.WalletID,
		PeriodStart: start,
		PeriodEnd:   end,
		Actor:       account,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"settlement": st})
}

// ListSettlements shows partners their own settlements; admins pass
// ?wallet_id=.
func (h *Handler) ListSettlements(c *gin.Context) {
	account, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	if middleware.Role(c) != jwt.RoleAdmin {
		rows, err := h.service.ListForAccount(c.Request.Context(), account)
		if err != nil {
			response.FromError(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"settlements": rows})
		return
	}

	raw := c.Query("wallet_id")
	if raw == "" {
		response.FromError(c, ErrWalletRequired)
		return
	}
	walletID, err := ids.Parse[ids.WalletID](raw)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid wallet id")
		return
	}
	rows, err := h.service.ListForWallet(c.Request.Context(), walletID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settlements": rows})
}

func (h *Handler) transition(action Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := ids.Parse[ids.SettlementID](c.Param("id"))
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid settlement id")
			return
		}
		var body failBody
		if action == ActionFail {
			_ = c.ShouldBindJSON(&body)
		}
		account, _ := middleware.AccountID(c)

		st, err := h.service.Transition(c.Request.Context(), TransitionRequest{
			SettlementID: id,
			Action:       action,
			Reason:       body.Reason,
			Actor:        account,
		})
		if err != nil {
			response.FromError(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"settlement": st})
	}
}
