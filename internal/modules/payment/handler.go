package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"staybook/internal/middleware"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/logger"
	"staybook/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterProtectedRoutes expects rg to be behind JWTAuth.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments", h.Initiate)
	rg.GET("/payments/:id", middleware.AdminOnly(), h.GetPayment)
	rg.POST("/payments/:id/refund", middleware.AdminOnly(), h.Refund)
}

// RegisterPublicRoutes mounts the gateway return URL. Its authenticity
// comes from the callback signature.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/payments/callback", h.Callback)
}

func (h *Handler) Initiate(c *gin.Context) {
	account, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	var body initiateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	res, err := h.service.Initiate(c.Request.Context(), InitiateRequest{
		BookingID: body.BookingID,
		Actor:     account,
		Role:      middleware.Role(c),
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) Callback(c *gin.Context) {
	query := c.Request.URL.Query()
	fields := make(map[string]string, len(query))
	for k, v := range query {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	logger.Ctx(c.Request.Context()).Info().Str("raw_query", c.Request.URL.RawQuery).Msg("payment callback received")

	p, err := h.service.HandleCallback(c.Request.Context(), fields)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"payment_id": p.ID, "status": p.Status})
}

func (h *Handler) GetPayment(c *gin.Context) {
	id, err := ids.Parse[ids.PaymentID](c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid payment id")
		return
	}
	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"payment": p})
}

func (h *Handler) Refund(c *gin.Context) {
	id, err := ids.Parse[ids.PaymentID](c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid payment id")
		return
	}
	var body refundBody
	_ = c.ShouldBindJSON(&body)
	account, _ := middleware.AccountID(c)

	p, err := h.service.Refund(c.Request.Context(), RefundRequest{PaymentID: id, Reason: body.Reason, Actor: account})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"payment": p})
}
