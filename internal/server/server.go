// Package server assembles the use-case services and the HTTP router.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"staybook/internal/cache"
	"staybook/internal/gateway/sandbox"
	"staybook/internal/jobs"
	"staybook/internal/middleware"
	"staybook/internal/modules/booking"
	"staybook/internal/modules/catalog"
	"staybook/internal/modules/payment"
	"staybook/internal/modules/settlement"
	"staybook/internal/modules/voucher"
	"staybook/internal/modules/wallet"
	"staybook/internal/notify"
	"staybook/internal/pkg/clock"
	jwtsvc "staybook/internal/pkg/jwt"
	"staybook/internal/pkg/pipeline"
)

// CallbackPath is where the gateway returns the payer.
const CallbackPath = "/api/v1/payments/callback"

type Config struct {
	CommissionRate decimal.Decimal
	ReturnURL      string
	QuoteTTL       time.Duration
}

type Services struct {
	Catalog    *catalog.Service
	Booking    *booking.Service
	Payment    *payment.Service
	Voucher    *voucher.Service
	Wallet     *wallet.Service
	Settlement *settlement.Service
}

// NewServices wires every use-case service over db. Bookings release their
// payments through the payment service.
func NewServices(db *gorm.DB, gateway *sandbox.Gateway, queue jobs.Enqueuer, quotes cache.Cache, clk clock.Clock, cfg Config, stages pipeline.Stages) *Services {
	payments := payment.NewService(db, gateway, queue, clk, payment.Config{
		CommissionRate: cfg.CommissionRate,
		ReturnURL:      cfg.ReturnURL,
	}, stages)
	return &Services{
		Catalog:    catalog.NewService(db, queue, clk, stages),
		Booking:    booking.NewService(db, payments, queue, clk, stages),
		Payment:    payments,
		Voucher:    voucher.NewService(db, quotes, cfg.QuoteTTL, queue, clk, stages),
		Wallet:     wallet.NewService(db, queue, clk, stages),
		Settlement: settlement.NewService(db, queue, clk, stages),
	}
}

type RouterOptions struct {
	Logger  zerolog.Logger
	Tokens  *jwtsvc.Service
	Gateway *sandbox.Gateway
	// CallbackURL overrides where the sandbox pay page redirects.
	CallbackURL string
	Hub         *notify.Hub
	Metrics     http.Handler
	// MetricsToken puts /metrics behind InternalTokenAuth when set.
	MetricsToken      string
	MetricsAllowedIPs []string
	CORSOrigins       []string
}

func NewRouter(s *Services, o RouterOptions) *gin.Engine {
	catalogHandler := catalog.NewHandler(s.Catalog)
	bookingHandler := booking.NewHandler(s.Booking)
	paymentHandler := payment.NewHandler(s.Payment)
	voucherHandler := voucher.NewHandler(s.Voucher)
	walletHandler := wallet.NewHandler(s.Wallet)
	settlementHandler := settlement.NewHandler(s.Settlement)

	r := gin.New()
	r.Use(middleware.RequestLogger(o.Logger))
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.CORS(o.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if o.Metrics != nil {
		if o.MetricsToken != "" {
			r.GET("/metrics", middleware.InternalTokenAuth(o.MetricsToken, o.MetricsAllowedIPs), gin.WrapH(o.Metrics))
		} else {
			r.GET("/metrics", gin.WrapH(o.Metrics))
		}
	}
	if o.Hub != nil {
		r.GET("/ws", o.Hub.Handler(o.Tokens))
	}
	if o.Gateway != nil {
		callback := o.CallbackURL
		if callback == "" {
			callback = CallbackPath
		}
		r.GET("/sandbox/pay", o.Gateway.PayHandler(callback))
	}

	v1 := r.Group("/api/v1")
	{
		// public
		catalogHandler.RegisterRoutes(v1)
		paymentHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(o.Tokens))
		{
			catalogHandler.RegisterProtectedRoutes(protected)
			bookingHandler.RegisterRoutes(protected)
			paymentHandler.RegisterProtectedRoutes(protected)
			voucherHandler.RegisterRoutes(protected)
			walletHandler.RegisterRoutes(protected)
			settlementHandler.RegisterRoutes(protected)
		}
	}
	return r
}
