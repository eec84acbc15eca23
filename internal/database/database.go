package database

import (
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/catalog"
	"staybook/internal/domain/inventory"
	"staybook/internal/domain/payment"
	"staybook/internal/domain/voucher"
	"staybook/internal/domain/wallet"
)

func Connect(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		log.Info().Msg("connecting to postgresql")
		return gorm.Open(postgres.Open(dsn), cfg)
	}

	log.Info().Str("dsn", dsn).Msg("using sqlite for local development")

	return gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		cfg,
	)
}

// Models lists every persisted entity in dependency order.
func Models() []any {
	return []any{
		&catalog.Property{},
		&catalog.RoomType{},
		&inventory.Availability{},
		&inventory.Promotion{},
		&voucher.Voucher{},
		&voucher.Target{},
		&voucher.Redemption{},
		&booking.Booking{},
		&booking.Detail{},
		&booking.History{},
		&payment.Payment{},
		&wallet.Wallet{},
		&wallet.Transaction{},
		&wallet.Settlement{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
