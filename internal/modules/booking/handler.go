package booking

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"staybook/internal/domain/booking"
	"staybook/internal/middleware"
	"staybook/internal/pkg/ids"
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
	bookings := rg.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("/my", h.ListMine)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/confirm", h.transition(ActionConfirm))
		bookings.POST("/:id/check-in", h.transition(ActionCheckIn))
		bookings.POST("/:id/check-out", h.transition(ActionCheckOut))
		bookings.POST("/:id/complete", h.transition(ActionComplete))
		bookings.POST("/:id/cancel", h.transition(ActionCancel))
	}
	rg.GET("/properties/:id/bookings", middleware.PartnerOnly(), h.ListForProperty)
}

func (h *Handler) CreateBooking(c *gin.Context) {
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
	checkIn, err1 := time.Parse(time.DateOnly, body.CheckIn)
	checkOut, err2 := time.Parse(time.DateOnly, body.CheckOut)
	if err1 != nil || err2 != nil {
		response.FromError(c, ErrInvalidDate)
		return
	}

	res, err := h.service.CreateBooking(c.Request.Context(), CreateRequest{
		UserID:          account,
		PropertyID:      body.PropertyID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          body.Guests,
		Rooms:           body.Rooms,
		VoucherCode:     body.VoucherCode,
		SpecialRequests: body.SpecialRequests,
		PaymentMethod:   body.PaymentMethod,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	account, _ := middleware.AccountID(c)
	res, err := h.service.Get(c.Request.Context(), id, account, middleware.Role(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) ListMine(c *gin.Context) {
	account, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	var q ListQuery
	_ = c.ShouldBindQuery(&q)
	rows, err := h.service.ListMine(c.Request.Context(), account, q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": rows})
}

func (h *Handler) ListForProperty(c *gin.Context) {
	property, err := ids.Parse[ids.PropertyID](c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid property id")
		return
	}
	account, _ := middleware.AccountID(c)
	var q ListQuery
	_ = c.ShouldBindQuery(&q)
	rows, err := h.service.ListForProperty(c.Request.Context(), property, booking.Status(c.Query("status")), account, middleware.Role(c), q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": rows})
}

func (h *Handler) transition(action Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bookingID(c)
		if !ok {
			return
		}
		account, ok := middleware.AccountID(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		var body cancelBody
		if action == ActionCancel {
			_ = c.ShouldBindJSON(&body)
		}
		b, err := h.service.Transition(c.Request.Context(), TransitionRequest{
			BookingID: id,
			Action:    action,
			Actor:     account,
			Role:      middleware.Role(c),
			Reason:    body.Reason,
		})
		if err != nil {
			response.FromError(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"booking": b})
	}
}

func bookingID(c *gin.Context) (ids.BookingID, bool) {
	id, err := ids.Parse[ids.BookingID](c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid booking id")
		return ids.BookingID{}, false
	}
	return id, true
}
