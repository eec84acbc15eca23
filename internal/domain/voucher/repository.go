package voucher

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staybook/internal/pkg/ids"
	"staybook/internal/store"
)

// Redemption links a voucher use to the booking that consumed it. A released
// redemption no longer counts against the per-user limit.
type Redemption struct {
	ID         uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	VoucherID  ids.VoucherID `json:"voucher_id" gorm:"type:uuid;not null;index:idx_redemption_voucher_account,priority:1"`
	AccountID  ids.AccountID `json:"account_id" gorm:"type:uuid;not null;index:idx_redemption_voucher_account,priority:2"`
	BookingID  ids.BookingID `json:"booking_id" gorm:"type:uuid;not null;uniqueIndex"`
	CreatedAt  time.Time     `json:"created_at" gorm:"not null"`
	ReleasedAt *time.Time    `json:"released_at,omitempty"`
}

func (Redemption) TableName() string { return "voucher_redemptions" }

type Repository struct {
	db       *gorm.DB
	vouchers *store.Repository[Voucher, ids.VoucherID]
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:       db,
		vouchers: store.NewRepository[Voucher, ids.VoucherID](db, ErrNotFound),
	}
}

// Create stores the voucher with its targets.
func (r *Repository) Create(ctx context.Context, v *Voucher) error {
	err := store.Translate(store.DB(ctx, r.db).Create(v).Error, nil)
	if errors.Is(err, store.ErrDuplicate) {
		return ErrCodeExists.WithMessage("voucher code %s already exists", v.Code)
	}
	return err
}

func (r *Repository) GetByID(ctx context.Context, id ids.VoucherID) (*Voucher, error) {
	var v Voucher
	if err := store.DB(ctx, r.db).Preload("Targets").Where("id = ?", id).First(&v).Error; err != nil {
		return nil, store.Translate(err, ErrNotFound)
	}
	return &v, nil
}

func (r *Repository) GetByCode(ctx context.Context, code string) (*Voucher, error) {
	var v Voucher
	err := store.DB(ctx, r.db).Preload("Targets").Where("code = ?", NormalizeCode(code)).First(&v).Error
	if err != nil {
		return nil, store.Translate(err, ErrNotFound.WithMessage("voucher %s not found", NormalizeCode(code)))
	}
	return &v, nil
}

// SaveStatus persists a status change. UsedCount is owned by
// IncrementUsage and DecrementUsage and is never written from memory.
func (r *Repository) SaveStatus(ctx context.Context, v *Voucher) error {
	res := store.DB(ctx, r.db).Model(&Voucher{}).Where("id = ?", v.ID).
		Updates(map[string]any{"status": v.Status, "updated_at": v.UpdatedAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns vouchers created by an account, newest first. A zero
// account lists every voucher.
func (r *Repository) List(ctx context.Context, createdBy ids.AccountID) ([]Voucher, error) {
	return r.vouchers.Query(ctx, func(q *gorm.DB) *gorm.DB {
		if !createdBy.IsZero() {
			q = q.Where("created_by = ?", createdBy)
		}
		return q.Preload("Targets").Order("created_at DESC")
	})
}

// IncrementUsage consumes one use. The limit check and the increment are one
// statement, so concurrent redemptions can never push UsedCount past
// UsageLimit.
func (r *Repository) IncrementUsage(ctx context.Context, id ids.VoucherID, now time.Time) error {
	res := store.DB(ctx, r.db).Model(&Voucher{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", id).
		Updates(map[string]any{
			"used_count": gorm.Expr("used_count + 1"),
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if _, err := r.vouchers.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrUsageLimitReached
}

// DecrementUsage gives one use back. It never drives UsedCount below zero.
func (r *Repository) DecrementUsage(ctx context.Context, id ids.VoucherID, now time.Time) error {
	return store.DB(ctx, r.db).Model(&Voucher{}).
		Where("id = ? AND used_count > 0", id).
		Updates(map[string]any{
			"used_count": gorm.Expr("used_count - 1"),
			"updated_at": now,
		}).Error
}

func (r *Repository) RecordRedemption(ctx context.Context, voucherID ids.VoucherID, account ids.AccountID, booking ids.BookingID, now time.Time) error {
	return store.Translate(store.DB(ctx, r.db).Create(&Redemption{
		ID:        uuid.New(),
		VoucherID: voucherID,
		AccountID: account,
		BookingID: booking,
		CreatedAt: now,
	}).Error, nil)
}

// ReleaseRedemption marks the booking's redemption released and returns it,
// or nil when the booking used no voucher.
func (r *Repository) ReleaseRedemption(ctx context.Context, booking ids.BookingID, now time.Time) (*Redemption, error) {
	var red Redemption
	err := store.DB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("booking_id = ? AND released_at IS NULL", booking).
		First(&red).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	red.ReleasedAt = &now
	if err := store.DB(ctx, r.db).Model(&red).Update("released_at", now).Error; err != nil {
		return nil, err
	}
	return &red, nil
}

// CountUserRedemptions counts the unreleased uses of a voucher by account.
func (r *Repository) CountUserRedemptions(ctx context.Context, voucherID ids.VoucherID, account ids.AccountID) (int64, error) {
	var n int64
	err := store.DB(ctx, r.db).Model(&Redemption{}).
		Where("voucher_id = ? AND account_id = ? AND released_at IS NULL", voucherID, account).
		Count(&n).Error
	return n, err
}

// ExpireVouchers marks active vouchers past their end date as expired.
func (r *Repository) ExpireVouchers(ctx context.Context, now time.Time) (int64, error) {
	res := store.DB(ctx, r.db).Model(&Voucher{}).
		Where("status = ? AND end_date < ?", StatusActive, now).
		Updates(map[string]any{"status": StatusExpired, "updated_at": now})
	return res.RowsAffected, res.Error
}
