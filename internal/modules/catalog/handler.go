package catalog

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

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

// RegisterRoutes registers the public catalog reads.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	properties := r.Group("/properties")
	{
		properties.GET("", h.SearchProperties)   // ?city=...&limit=...
		properties.GET("/:id", h.GetPropertyByID) // with room types
	}

	roomTypes := r.Group("/room-types")
	{
		roomTypes.GET("/:id/availability", h.GetCalendar) // ?from=YYYY-MM-DD&to=YYYY-MM-DD
		roomTypes.GET("/:id/promotions", h.ListPromotions)
	}
}

// RegisterProtectedRoutes expects rg to be behind JWTAuth.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	partner := middleware.PartnerOnly()

	rg.GET("/properties/mine", partner, h.ListMyProperties)
	rg.POST("/properties", partner, h.CreateProperty)
	rg.POST("/properties/:id/room-types", partner, h.CreateRoomType)

	rg.PUT("/room-types/:id/availability", partner, h.SetAvailability)
	rg.POST("/room-types/:id/promotions", partner, h.CreatePromotion)

	rg.POST("/promotions/:id/activate", partner, h.togglePromotion(PromotionActivate))
	rg.POST("/promotions/:id/deactivate", partner, h.togglePromotion(PromotionDeactivate))
	rg.POST("/promotions/expire", middleware.AdminOnly(), h.ExpirePromotions)
}

/* ---------- PROPERTIES ---------- */

func (h *Handler) SearchProperties(c *gin.Context) {
	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query")
		return
	}
	props, err := h.service.Search(c.Request.Context(), q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"properties": props})
}

func (h *Handler) GetPropertyByID(c *gin.Context) {
	id, err := ids.Parse[ids.PropertyID](c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid property id")
		return
	}
	p, err := h.service.GetProperty(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"property": p})
}

func (h *Handler) ListMyProperties(c *gin.Context) {
	account, _ := middleware.AccountID(c)
	props, err := h.service.ListMine(c.Request.Context(), account)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"properties": props})
}

func (h *Handler) CreateProperty(c *gin.Context) {
	var req CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	req.Actor, _ = middleware.AccountID(c)
	req.Role = middleware.Role(c)

	p, err := h.service.CreateProperty(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"property": p})
}

/* ---------- ROOM TYPES ---------- */

func (h *Handler) CreateRoomType(c *gin.Context) {
	propertyID, err := ids.Parse[ids.PropertyID](c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid property id")
		return
	}
	var req CreateRoomTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	req.PropertyID = propertyID
	req.Actor, _ = middleware.AccountID(c)
	req.Role = middleware.Role(c)

	rt, err := h.service.CreateRoomType(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"room_type": rt})
}

/* ---------- AVAILABILITY ---------- */

func (h *Handler) GetCalendar(c *gin.Context) {
	roomType, err := ids.Parse[ids.RoomTypeID](c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid room type id")
		return
	}
	from, err1 := time.Parse(time.DateOnly, c.Query("from"))
	to, err2 := time.Parse(time.DateOnly, c.Query("to"))
	if err1 != nil || err2 != nil {
		response.FromError(c, ErrInvalidDate)
		return
	}

	nights, err := h.service.Calendar(c.Request.Context(), roomType, from, to)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"nights": nights})
}

func (h *Handler) SetAvailability(c *gin.Context) {
	roomType, err := ids.Parse[ids.RoomTypeID](c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid room type id")
		return
	}
	var body availabilityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	from, err1 := time.Parse(time.DateOnly, body.From)
	to, err2 := time.Parse(time.DateOnly, body.To)
	if err1 != nil || err2 != nil {
		response.FromError(c, ErrInvalidDate)
		return
	}
	account, _ := middleware.AccountID(c)

	rows, err := h.service.SetAvailability(c.Request.Context(), SetAvailabilityRequest{
		Actor:      account,
		Role:       middleware.Role(c),
		RoomTypeID: roomType,
		From:       from,
		To:         to,
		Quantity:   body.Quantity,
		Price:      body.Price,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"availability": rows})
}

/* ---------- PROMOTIONS ---------- */

func (h *Handler) ListPromotions(c *gin.Context) {
	roomType, err := ids.Parse[ids.RoomTypeID](c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid room type id")
		return
	}
	promos, err := h.service.ListPromotions(c.Request.Context(), roomType)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"promotions": promos})
}

func (h *Handler) CreatePromotion(c *gin.Context) {
	roomType, err := ids.Parse[ids.RoomTypeID](c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid room type id")
		return
	}
	var body promotionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	start, err1 := time.Parse(time.DateOnly, body.StartDate)
	end, err2 := time.Parse(time.DateOnly, body.EndDate)
	if err1 != nil || err2 != nil {
		response.FromError(c, ErrInvalidDate)
		return
	}
	account, _ := middleware.AccountID(c)

	p, err := h.service.CreatePromotion(c.Request.Context(), CreatePromotionRequest{
		Actor:           account,
		Role:            middleware.Role(c),
		RoomTypeID:      roomType,
		Name:            body.Name,
		DiscountPercent: body.DiscountPercent,
		DiscountAmount:  body.DiscountAmount,
		StartDate:       start,
		EndDate:         end,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"promotion": p})
}

func (h *Handler) togglePromotion(action PromotionAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := ids.Parse[ids.RoomPromotionID](c.Param("id"))
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid promotion id")
			return
		}
		account, _ := middleware.AccountID(c)

		p, err := h.service.TogglePromotion(c.Request.Context(), TogglePromotionRequest{
			Actor:       account,
			Role:        middleware.Role(c),
			PromotionID: id,
			Action:      action,
		})
		if err != nil {
			response.FromError(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"promotion": p})
	}
}

func (h *Handler) ExpirePromotions(c *gin.Context) {
	n, err := h.service.ExpirePromotions(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"expired": n})
}
