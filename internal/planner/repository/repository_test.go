package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tair/fridge-planner/internal/planner/domain"
)

func newMockRepository(t *testing.T) (*GormRecordRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return NewGormRecordRepository(gdb), mock
}

func TestListDishes(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"owner_id", "id", "name", "quantity", "default_yield", "tags", "color", "created_at", "updated_at"}).
		AddRow("u1", "a", "Lasagnes", 2, 4, `["pasta"]`, "teal", now, now).
		AddRow("u1", "b", "Soupe", 0, 0, `[]`, "", now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "planner_dishes" WHERE owner_id = $1 ORDER BY created_at, id`)).
		WithArgs("u1").
		WillReturnRows(rows)

	dishes, err := repo.ListDishes(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Dish{
		{ID: "a", Name: "Lasagnes", Quantity: 2, DefaultYield: 4, Tags: []string{"pasta"}, Color: domain.ColorTeal},
		{ID: "b", Name: "Soupe", Tags: []string{}},
	}, dishes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSlots(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"owner_id", "id", "date", "meal", "dish_id", "type", "dish_name", "dish_color", "created_at", "updated_at"}).
		AddRow("u1", "s1", "2024-01-01", "lunch", "a", "meal", "Lasagnes", "teal", now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "planner_slots" WHERE owner_id = $1 ORDER BY created_at, id`)).
		WithArgs("u1").
		WillReturnRows(rows)

	slots, err := repo.ListSlots(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []domain.MealSlot{{
		ID: "s1", Date: "2024-01-01", Meal: domain.MealLunch, DishID: "a",
		Type: domain.SlotTypeMeal, DishName: "Lasagnes", DishColor: domain.ColorTeal,
	}}, slots)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDishesError(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("connection reset"))

	_, err := repo.ListDishes(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list dishes")
}

func TestSaveDishUpserts(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`INSERT INTO "planner_dishes" .* ON CONFLICT \("owner_id","id"\) DO UPDATE SET`).
		WithArgs("u1", "a", "Lasagnes", 1, 0, `[]`, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveDish(context.Background(), "u1", domain.Dish{ID: "a", Name: "Lasagnes", Quantity: 1})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSlotUpserts(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`INSERT INTO "planner_slots" .* ON CONFLICT \("owner_id","id"\) DO UPDATE SET`).
		WithArgs("u1", "s1", "2024-01-01", "dinner", "a", "leftover", "Lasagnes", "orange", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveSlot(context.Background(), "u1", domain.MealSlot{
		ID: "s1", Date: "2024-01-01", Meal: domain.MealDinner, DishID: "a",
		Type: domain.SlotTypeLeftover, DishName: "Lasagnes", DishColor: domain.ColorOrange,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletes(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "planner_dishes" WHERE owner_id = $1 AND id = $2`)).
		WithArgs("u1", "a").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "planner_slots" WHERE owner_id = $1 AND id = $2`)).
		WithArgs("u1", "s1").
		WillReturnError(errors.New("deadlock detected"))

	require.NoError(t, repo.DeleteDish(context.Background(), "u1", "a"))
	err := repo.DeleteSlot(context.Background(), "u1", "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete slot")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTracedRepositoryPassesThrough(t *testing.T) {
	inner := newMemoryRepository()
	repo := NewTracedRecordRepository(inner)
	ctx := context.Background()

	require.NoError(t, repo.SaveDish(ctx, "u1", domain.Dish{ID: "a", Quantity: 1}))
	require.NoError(t, repo.SaveSlot(ctx, "u1", domain.MealSlot{ID: "s1", DishID: "a"}))

	dishes, err := repo.ListDishes(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, dishes, 1)

	inner.failWith(errors.New("boom"))
	_, err = repo.ListSlots(ctx, "u1")
	assert.EqualError(t, err, "boom")
	assert.EqualError(t, repo.DeleteDish(ctx, "u1", "a"), "boom")
	assert.EqualError(t, repo.DeleteSlot(ctx, "u1", "s1"), "boom")
}
