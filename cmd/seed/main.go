package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"staybook/internal/config"
	"staybook/internal/database"
	domainvoucher "staybook/internal/domain/voucher"
	"staybook/internal/modules/catalog"
	"staybook/internal/modules/voucher"
	"staybook/internal/modules/wallet"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/ids"
	jwtsvc "staybook/internal/pkg/jwt"
	"staybook/internal/pkg/logger"
	"staybook/internal/pkg/money"
	"staybook/internal/pkg/pipeline"
)

const stockDays = 30

// Fixed account ids so tokens printed by earlier runs keep working.
var (
	adminAccount   = ids.MustParse[ids.AccountID]("00000000-0000-4000-8000-000000000001")
	partnerAccount = ids.MustParse[ids.AccountID]("00000000-0000-4000-8000-000000000002")
	guestAccount   = ids.MustParse[ids.AccountID]("00000000-0000-4000-8000-000000000003")
)

type roomSeed struct {
	name     string
	capacity int
	price    string
	quantity int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	log.Info().Msg("running migrations")
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	// Children first so foreign keys never dangle.
	log.Info().Msg("cleaning old data")
	for _, table := range []string{
		"settlements", "transactions", "wallets", "payments",
		"booking_histories", "booking_details", "bookings",
		"voucher_redemptions", "voucher_targets", "vouchers",
		"room_promotions", "room_availabilities", "room_types", "properties",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			log.Fatal().Err(err).Str("table", table).Msg("clean table")
		}
	}

	clk := clock.Real()
	stages := pipeline.Stages{}
	catalogs := catalog.NewService(db, nil, clk, stages)
	vouchers := voucher.NewService(db, nil, 0, nil, clk, stages)
	wallets := wallet.NewService(db, nil, clk, stages)

	// ================== PROPERTY ==================
	property, err := catalogs.CreateProperty(ctx, catalog.CreatePropertyRequest{
		Actor:   partnerAccount,
		Role:    jwtsvc.RolePartner,
		Name:    "Harbour View Hotel",
		Address: "12 Bach Dang",
		City:    "Da Nang",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create property")
	}
	log.Info().Str("id", property.ID.String()).Msg("property created")

	// ================== ROOMS & STOCK ==================
	today := clock.Date(clk.Now())
	var firstRoom ids.RoomTypeID
	for i, rs := range []roomSeed{
		{name: "Standard Double", capacity: 2, price: "65.00", quantity: 8},
		{name: "Deluxe Sea View", capacity: 2, price: "110.00", quantity: 4},
		{name: "Family Suite", capacity: 4, price: "180.00", quantity: 2},
	} {
		rt, err := catalogs.CreateRoomType(ctx, catalog.CreateRoomTypeRequest{
			Actor:      partnerAccount,
			Role:       jwtsvc.RolePartner,
			PropertyID: property.ID,
			Name:       rs.name,
			Capacity:   rs.capacity,
			BasePrice:  money.MustFromString(rs.price),
		})
		if err != nil {
			log.Fatal().Err(err).Str("room", rs.name).Msg("create room type")
		}
		if i == 0 {
			firstRoom = rt.ID
		}

		_, err = catalogs.SetAvailability(ctx, catalog.SetAvailabilityRequest{
			Actor:      partnerAccount,
			Role:       jwtsvc.RolePartner,
			RoomTypeID: rt.ID,
			From:       today,
			To:         today.AddDate(0, 0, stockDays),
			Quantity:   rs.quantity,
			Price:      rt.BasePrice,
		})
		if err != nil {
			log.Fatal().Err(err).Str("room", rs.name).Msg("stock room type")
		}
		log.Info().Str("id", rt.ID.String()).Str("name", rt.Name).Int("days", stockDays).Msg("room type stocked")
	}

	// ================== PROMOTION ==================
	pct := money.MustFromString("15")
	if _, err := catalogs.CreatePromotion(ctx, catalog.CreatePromotionRequest{
		Actor:           partnerAccount,
		Role:            jwtsvc.RolePartner,
		RoomTypeID:      firstRoom,
		Name:            "Early bird",
		DiscountPercent: &pct,
		StartDate:       today,
		EndDate:         today.AddDate(0, 0, 14),
	}); err != nil {
		log.Fatal().Err(err).Msg("create promotion")
	}

	// ================== VOUCHERS ==================
	ceiling := money.MustFromString("50")
	limit := 100
	perUser := 1
	if _, err := vouchers.Create(ctx, voucher.CreateRequest{
		Actor:                 adminAccount,
		Role:                  jwtsvc.RoleAdmin,
		Code:                  "WELCOME10",
		Description:           "10% off your first stay",
		DiscountType:          domainvoucher.DiscountPercent,
		DiscountValue:         money.MustFromString("10"),
		MaximumDiscountAmount: &ceiling,
		UsageLimit:            &limit,
		UsageLimitPerUser:     &perUser,
		StartDate:             today,
		EndDate:               today.AddDate(0, 3, 0),
	}); err != nil {
		log.Fatal().Err(err).Msg("create global voucher")
	}

	target := uuid.UUID(property.ID)
	minOrder := money.MustFromString("200")
	if _, err := vouchers.Create(ctx, voucher.CreateRequest{
		Actor:              partnerAccount,
		Role:               jwtsvc.RolePartner,
		Code:               "HARBOUR25",
		Description:        "25 off stays of 200 or more",
		DiscountType:       domainvoucher.DiscountAmount,
		DiscountValue:      money.MustFromString("25"),
		MinimumOrderAmount: &minOrder,
		StartDate:          today,
		EndDate:            today.AddDate(0, 1, 0),
		Targets:            []voucher.TargetBody{{Scope: domainvoucher.ScopeProperty, TargetID: &target}},
	}); err != nil {
		log.Fatal().Err(err).Msg("create property voucher")
	}

	// ================== WALLET ==================
	if _, err := wallets.GetWallet(ctx, partnerAccount); err != nil {
		log.Fatal().Err(err).Msg("open partner wallet")
	}

	// ================== TOKENS ==================
	tokens := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	for _, a := range []struct {
		account ids.AccountID
		role    string
	}{
		{adminAccount, jwtsvc.RoleAdmin},
		{partnerAccount, jwtsvc.RolePartner},
		{guestAccount, jwtsvc.RoleGuest},
	} {
		tok, err := tokens.GenerateToken(a.account, a.role)
		if err != nil {
			log.Fatal().Err(err).Msg("generate token")
		}
		fmt.Printf("%-8s %s\n         %s\n", a.role, a.account, tok)
	}

	log.Info().Msg("seed completed")
}
