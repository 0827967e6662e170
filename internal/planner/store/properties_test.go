package store

import (
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/fridge-planner/internal/planner/domain"
)

type pair struct {
	date domain.Date
	meal domain.MealPeriod
}

func assertInvariants(t *testing.T, st State) {
	t.Helper()

	seen := make(map[pair]string)
	for _, slot := range st.Slots {
		p := pair{slot.Date, slot.Meal}
		if other, dup := seen[p]; dup {
			t.Fatalf("slots %s and %s share %s/%s", other, slot.ID, slot.Date, slot.Meal)
		}
		seen[p] = slot.ID
	}
	for _, d := range st.Dishes {
		if d.Quantity < 0 {
			t.Fatalf("dish %s has negative stock %d", d.ID, d.Quantity)
		}
	}
}

func slotsReferencing(st State, dishID string) int {
	n := 0
	for _, s := range st.Slots {
		if s.DishID == dishID {
			n++
		}
	}
	return n
}

func randomPair(rng *rand.Rand, days []domain.Date) pair {
	return pair{
		date: days[rng.Intn(len(days))],
		meal: domain.SchedulableMeals[rng.Intn(len(domain.SchedulableMeals))],
	}
}

func TestConservationOnSingleDish(t *testing.T) {
	days := domain.PlanningWindow("2024-01-01")[:4]

	for seed := int64(1); seed <= 25; seed++ {
		rng := rand.New(rand.NewSource(seed))
		const initial = 5

		s := New("owner", nil, WithLogger(zerolog.Nop()), WithIDGenerator(sequentialIDs("s")))
		require.True(t, s.CreateDish(domain.Dish{ID: "a", Quantity: initial}))

		for step := 0; step < 200; step++ {
			if rng.Intn(3) > 0 {
				p := randomPair(rng, days)
				s.AssignSlot(p.date, p.meal, "a")
			} else if slots := s.Slots(); len(slots) > 0 {
				s.UnassignSlot(slots[rng.Intn(len(slots))].ID)
			} else {
				s.UnassignSlot("nope")
			}

			snap := s.Snapshot()
			assertInvariants(t, snap)
			d, ok := s.Dish("a")
			require.True(t, ok)
			require.Equal(t, initial-slotsReferencing(snap, "a"), d.Quantity, "seed %d step %d", seed, step)
		}
	}
}

func TestRandomSequencesKeepInvariants(t *testing.T) {
	days := domain.PlanningWindow("2024-01-01")
	ids := []string{"a", "b", "c", "d"}

	for seed := int64(1); seed <= 25; seed++ {
		rng := rand.New(rand.NewSource(seed))
		s := New("owner", nil, WithLogger(zerolog.Nop()), WithIDGenerator(sequentialIDs("s")))

		for step := 0; step < 300; step++ {
			id := ids[rng.Intn(len(ids))]
			switch rng.Intn(8) {
			case 0:
				s.CreateDish(domain.Dish{ID: id, Name: id, Quantity: rng.Intn(4), DefaultYield: rng.Intn(3)})
			case 1:
				s.DeleteDish(id)
			case 2:
				s.RestockDish(id)
			case 3:
				q := rng.Intn(5) - 1
				s.UpdateDish(id, domain.DishPatch{Quantity: &q})
			case 4, 5, 6:
				p := randomPair(rng, days)
				s.AssignSlot(p.date, p.meal, id)
			case 7:
				if slots := s.Slots(); len(slots) > 0 {
					s.UnassignSlot(slots[rng.Intn(len(slots))].ID)
				}
			}
			assertInvariants(t, s.Snapshot())
		}
	}
}

// Without deletions or edits, assignments only move portions between the
// fridge and the calendar.
func TestPortionsPlusSlotsIsConstantWithoutEdits(t *testing.T) {
	days := domain.PlanningWindow("2024-01-01")[:3]
	rng := rand.New(rand.NewSource(42))

	s := New("owner", nil, WithLogger(zerolog.Nop()))
	require.True(t, s.CreateDish(domain.Dish{ID: "a", Quantity: 3}))
	require.True(t, s.CreateDish(domain.Dish{ID: "b", Quantity: 2}))
	require.True(t, s.CreateDish(domain.Dish{ID: "c", Quantity: 4}))
	const total = 9

	for step := 0; step < 500; step++ {
		if rng.Intn(4) > 0 {
			p := randomPair(rng, days)
			s.AssignSlot(p.date, p.meal, []string{"a", "b", "c"}[rng.Intn(3)])
		} else if slots := s.Slots(); len(slots) > 0 {
			s.UnassignSlot(slots[rng.Intn(len(slots))].ID)
		}
		snap := s.Snapshot()
		assert.Equal(t, total, snap.Portions()+len(snap.Slots))
	}
}
