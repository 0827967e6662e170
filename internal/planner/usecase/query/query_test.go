package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/fridge-planner/internal/planner/domain"
	"github.com/tair/fridge-planner/internal/planner/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New("u1", store.Discard, store.WithLogger(zerolog.Nop()))
	st.ReplaceAllDishes([]domain.Dish{
		{ID: "a", Name: "Lasagnes", Quantity: 2, DefaultYield: 4, Tags: []string{"pasta"}, Color: domain.ColorTeal},
		{ID: "b", Name: "Ratatouille", Quantity: 0, Tags: []string{"veggie"}, Color: "#10b981"},
		{ID: "c", Name: "Dal", Quantity: 3, Tags: []string{"veggie", "spicy"}},
	})
	return st
}

func TestListDishesAll(t *testing.T) {
	h := NewListDishesHandler(seededStore(t), domain.NewResolver(zerolog.Nop()), NewFilterCache())

	views, err := h.Handle(context.Background(), ListDishesQuery{})
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, domain.Palette[domain.ColorTeal].Normal, views[0].Shade)
	assert.Equal(t, domain.Palette[domain.ColorTeal].Grayed, views[1].Shade)
	assert.Equal(t, domain.Palette[domain.ColorOrange].Normal, views[2].Shade)
}

func TestListDishesFilter(t *testing.T) {
	h := NewListDishesHandler(seededStore(t), domain.NewResolver(zerolog.Nop()), NewFilterCache())
	ctx := context.Background()

	tests := []struct {
		filter string
		want   []string
	}{
		{`quantity > 0`, []string{"a", "c"}},
		{`"veggie" in tags`, []string{"b", "c"}},
		{`quantity > 0 and "veggie" in tags`, []string{"c"}},
		{`color == "teal"`, []string{"a", "b"}},
		{`name startsWith "La"`, []string{"a"}},
		{`defaultYield >= 4`, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			views, err := h.Handle(ctx, ListDishesQuery{Filter: tt.filter})
			require.NoError(t, err)
			var ids []string
			for _, v := range views {
				ids = append(ids, v.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestListDishesInvalidFilter(t *testing.T) {
	h := NewListDishesHandler(seededStore(t), domain.NewResolver(zerolog.Nop()), NewFilterCache())

	for _, filter := range []string{`quantity +`, `name`, `calories > 3`} {
		_, err := h.Handle(context.Background(), ListDishesQuery{Filter: filter})
		assert.ErrorIs(t, err, domain.ErrInvalidFilter, filter)
	}
}

func TestFilterCacheReusesPrograms(t *testing.T) {
	c := NewFilterCache()
	p1, err := c.Compile(`quantity > 1`)
	require.NoError(t, err)
	p2, err := c.Compile(`quantity > 1`)
	require.NoError(t, err)
	assert.Same(t, p1, p2)
}

func TestFilterCacheIsBounded(t *testing.T) {
	c := NewFilterCacheSize(8)
	first, err := c.Compile(`quantity > 0`)
	require.NoError(t, err)

	for i := 1; i <= 100; i++ {
		_, err := c.Compile(fmt.Sprintf("quantity > %d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 8, c.Len())

	again, err := c.Compile(`quantity > 0`)
	require.NoError(t, err)
	assert.NotSame(t, first, again, "the oldest program was evicted")

	_, err = c.Compile(`quantity >`)
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)
	assert.Equal(t, 8, c.Len(), "failed compiles are not cached")
}

func planHandler(st *store.Store, today time.Time) *GetPlanHandler {
	h := NewGetPlanHandler(st, domain.NewResolver(zerolog.Nop()))
	h.now = func() time.Time { return today }
	h.location = time.UTC
	return h
}

func TestGetPlanWindow(t *testing.T) {
	// Wednesday 10 January 2024.
	h := planHandler(seededStore(t), time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))

	plan, err := h.Handle(context.Background(), GetPlanQuery{})
	require.NoError(t, err)
	assert.Equal(t, domain.Date("2024-01-08"), plan.Start)
	assert.Equal(t, domain.Date("2024-01-21"), plan.End)
	assert.Equal(t, domain.Date("2024-01-10"), plan.Today)
	require.Len(t, plan.Days, domain.PlanningDays)

	assert.Equal(t, "Monday", plan.Days[0].Weekday)
	assert.True(t, plan.Days[1].Past)
	assert.False(t, plan.Days[2].Past)
	assert.True(t, plan.Days[2].Today)
	assert.Nil(t, plan.Days[2].Lunch)

	plan, err = h.Handle(context.Background(), GetPlanQuery{Start: "2024-02-04"})
	require.NoError(t, err)
	assert.Equal(t, domain.Date("2024-01-29"), plan.Start)

	_, err = h.Handle(context.Background(), GetPlanQuery{Start: "next week"})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestGetPlanCells(t *testing.T) {
	st := seededStore(t)
	_, ok := st.AssignSlot("2024-01-10", domain.MealLunch, "a")
	require.True(t, ok)
	_, ok = st.AssignSlot("2024-01-10", domain.MealDinner, "c")
	require.True(t, ok)
	require.True(t, st.DeleteDish("c"))

	// A slot synced from elsewhere whose dish and name are both gone.
	st.ReplaceAllSlots(append(st.Slots(), domain.MealSlot{
		ID: "ghost", Date: "2024-01-11", Meal: domain.MealLunch, DishID: "zz", Type: domain.SlotTypeMeal,
	}))

	h := planHandler(st, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	plan, err := h.Handle(context.Background(), GetPlanQuery{})
	require.NoError(t, err)

	wed := plan.Days[2]
	require.NotNil(t, wed.Lunch)
	assert.Equal(t, "Lasagnes", wed.Lunch.DishName)
	assert.False(t, wed.Lunch.Orphan)
	assert.Equal(t, domain.Palette[domain.ColorTeal].Normal, wed.Lunch.Shade)

	require.NotNil(t, wed.Dinner)
	want := &PlanCell{
		SlotID:   wed.Dinner.SlotID,
		DishID:   "c",
		DishName: "Dal",
		Type:     domain.SlotTypeMeal,
		Shade:    domain.Palette[domain.ColorOrange].Grayed,
		Orphan:   true,
	}
	if diff := cmp.Diff(want, wed.Dinner); diff != "" {
		t.Errorf("orphan cell mismatch (-want +got):\n%s", diff)
	}

	thu := plan.Days[3]
	require.NotNil(t, thu.Lunch)
	assert.Equal(t, DeletedDishName, thu.Lunch.DishName)
	assert.True(t, thu.Lunch.Orphan)
}
