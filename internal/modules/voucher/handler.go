package voucher

import (
	"net/http"
	"time"

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

// RegisterRoutes expects rg to be behind JWTAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	vouchers := rg.Group("/vouchers")
	{
		vouchers.POST("", middleware.PartnerOnly(), h.CreateVoucher)
		vouchers.GET("", middleware.PartnerOnly(), h.ListVouchers)
		vouchers.GET("/:code", h.GetVoucher)
		vouchers.POST("/:code/preview", h.Preview)
		vouchers.POST("/:code/disable", middleware.PartnerOnly(), h.DisableVoucher)
	}
}

func (h *Handler) CreateVoucher(c *gin.Context) {
	account, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	var body createBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	start, err1 := parseDate(body.StartDate)
	end, err2 := parseDate(body.EndDate)
	if err1 != nil || err2 != nil {
		response.FromError(c, ErrInvalidDate)
		return
	}

	v, err := h.service.Create(c.Request.Context(), CreateRequest{
		Actor:                 account,
		Role:                  middleware.Role(c),
		Code:                  body.Code,
		Description:           body.Description,
		DiscountType:          body.DiscountType,
		DiscountValue:         body.DiscountValue,
		MinimumOrderAmount:    body.MinimumOrderAmount,
		MaximumDiscountAmount: body.MaximumDiscountAmount,
		UsageLimit:            body.UsageLimit,
		UsageLimitPerUser:     body.UsageLimitPerUser,
		StartDate:             start,
		EndDate:               end,
		Targets:               body.Targets,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"voucher": v})
}

func (h *Handler) ListVouchers(c *gin.Context) {
	account, _ := middleware.AccountID(c)
	rows, err := h.service.List(c.Request.Context(), account, middleware.Role(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"vouchers": rows})
}

func (h *Handler) GetVoucher(c *gin.Context) {
	v, err := h.service.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"voucher": v})
}

func (h *Handler) Preview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	req.Code = c.Param("code")
	q, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quote": q})
}

func (h *Handler) DisableVoucher(c *gin.Context) {
	account, _ := middleware.AccountID(c)
	v, err := h.service.Disable(c.Request.Context(), DisableRequest{
		Code:  c.Param("code"),
		Actor: account,
		Role:  middleware.Role(c),
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"voucher": v})
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
