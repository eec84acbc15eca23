package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/ids"
	"staybook/internal/store"
	"staybook/internal/store/storetest"
)

type widget struct {
	ID   ids.PropertyID `gorm:"type:uuid;primaryKey"`
	Name string         `gorm:"uniqueIndex"`
}

var errWidgetNotFound = apperr.NotFound("Widget.NotFound", "widget not found")

func setup(t *testing.T) (*store.Repository[widget, ids.PropertyID], *store.UnitOfWork) {
	t.Helper()
	db := storetest.Open(t, &widget{})
	return store.NewRepository[widget, ids.PropertyID](db, errWidgetNotFound), store.NewUnitOfWork(db)
}

func TestRepositoryCRUD(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()

	w := &widget{ID: ids.New[ids.PropertyID](), Name: "alpha"}
	require.NoError(t, repo.Add(ctx, w))

	got, err := repo.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.Name)

	got.Name = "beta"
	require.NoError(t, repo.Update(ctx, got))

	rows, err := repo.Query(ctx, func(q *gorm.DB) *gorm.DB { return q.Where("name = ?", "beta") })
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	require.NoError(t, repo.Delete(ctx, w.ID))
	_, err = repo.GetByID(ctx, w.ID)
	assert.ErrorIs(t, err, errWidgetNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, w.ID), errWidgetNotFound)
}

func TestAddDuplicateIsConflict(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, &widget{ID: ids.New[ids.PropertyID](), Name: "dup"}))
	err := repo.Add(ctx, &widget{ID: ids.New[ids.PropertyID](), Name: "dup"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.Equal(t, apperr.CategoryConflict, apperr.CategoryOf(err))
}

func TestUnitOfWorkRollsBackOnError(t *testing.T) {
	repo, uow := setup(t)
	ctx := context.Background()
	boom := errors.New("boom")

	id := ids.New[ids.PropertyID]()
	err := uow.Do(ctx, func(ctx context.Context) error {
		assert.True(t, store.InTx(ctx))
		if err := repo.Add(ctx, &widget{ID: id, Name: "rolled-back"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, errWidgetNotFound)
}

func TestUnitOfWorkCommitsAndNests(t *testing.T) {
	repo, uow := setup(t)
	ctx := context.Background()

	first, second := ids.New[ids.PropertyID](), ids.New[ids.PropertyID]()
	err := uow.Do(ctx, func(ctx context.Context) error {
		if err := repo.Add(ctx, &widget{ID: first, Name: "one"}); err != nil {
			return err
		}
		return uow.Do(ctx, func(ctx context.Context) error {
			return repo.Add(ctx, &widget{ID: second, Name: "two"})
		})
	})
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, first)
	assert.NoError(t, err)
	_, err = repo.GetByID(ctx, second)
	assert.NoError(t, err)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, store.Translate(nil, nil))
	assert.ErrorIs(t, store.Translate(gorm.ErrRecordNotFound, nil), store.ErrNotFound)
	assert.ErrorIs(t, store.Translate(gorm.ErrDuplicatedKey, nil), store.ErrDuplicate)
	plain := errors.New("io")
	assert.Equal(t, plain, store.Translate(plain, nil))
}
