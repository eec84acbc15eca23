// Package store is the repository / unit-of-work layer over gorm. A unit of
// work opens one database transaction and carries it in the context so that
// every repository call made inside it commits or rolls back together.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staybook/internal/pkg/apperr"
)

var (
	ErrNotFound  = apperr.NotFound("Store.NotFound", "record not found")
	ErrDuplicate = apperr.Conflict("Store.Duplicate", "record already exists")
	ErrStale     = apperr.Conflict("Store.StaleWrite", "record was modified concurrently, retry the operation")
)

type txKey struct{}

// DB returns the transaction active in ctx, or db bound to ctx.
func DB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// InTx reports whether ctx already carries a unit of work.
func InTx(ctx context.Context) bool {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok && tx != nil
}

// UnitOfWork commits everything staged inside Do as one transaction.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Do runs fn inside a transaction. Returning an error (or panicking) rolls
// back; a nested Do joins the outer transaction.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Repository is the typed CRUD contract shared by every aggregate store.
type Repository[T any, ID any] struct {
	db       *gorm.DB
	notFound error
}

// NewRepository builds a repository whose GetByID returns notFound for a
// missing row. A nil notFound falls back to ErrNotFound.
func NewRepository[T any, ID any](db *gorm.DB, notFound error) *Repository[T, ID] {
	if notFound == nil {
		notFound = ErrNotFound
	}
	return &Repository[T, ID]{db: db, notFound: notFound}
}

func (r *Repository[T, ID]) GetByID(ctx context.Context, id ID) (*T, error) {
	var m T
	if err := DB(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, Translate(err, r.notFound)
	}
	return &m, nil
}

// GetForUpdate reads the row with a FOR UPDATE lock. Only meaningful inside
// a unit of work; sqlite ignores the clause and serialises writers instead.
func (r *Repository[T, ID]) GetForUpdate(ctx context.Context, id ID) (*T, error) {
	var m T
	err := DB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&m).Error
	if err != nil {
		return nil, Translate(err, r.notFound)
	}
	return &m, nil
}

func (r *Repository[T, ID]) Add(ctx context.Context, e *T) error {
	return Translate(DB(ctx, r.db).Omit(clause.Associations).Create(e).Error, nil)
}

func (r *Repository[T, ID]) Update(ctx context.Context, e *T) error {
	return Translate(DB(ctx, r.db).Omit(clause.Associations).Save(e).Error, nil)
}

func (r *Repository[T, ID]) Delete(ctx context.Context, id ID) error {
	res := DB(ctx, r.db).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.notFound
	}
	return nil
}

// Query returns every row matching scope.
func (r *Repository[T, ID]) Query(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]T, error) {
	var out []T
	q := DB(ctx, r.db).Model(new(T))
	if scope != nil {
		q = scope(q)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DB exposes the underlying handle for repositories that need custom SQL.
func (r *Repository[T, ID]) DB(ctx context.Context) *gorm.DB {
	return DB(ctx, r.db)
}

// Translate maps driver errors onto apperr categories.
func Translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if notFound != nil {
			return notFound
		}
		return ErrNotFound
	case IsUniqueViolation(err):
		return ErrDuplicate
	}
	return err
}

func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed")
}
