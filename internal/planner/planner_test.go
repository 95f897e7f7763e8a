package planner

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iappwebdev/mahl-zeit-planer/internal/model"
)

func dish(name string, c model.Category, favorite bool) model.Dish {
	return model.Dish{ID: uuid.New(), Name: name, Category: c, IsFavorite: favorite}
}

func catalog(meat, veg, fish int) []model.Dish {
	var out []model.Dish
	for i := 0; i < meat; i++ {
		out = append(out, dish(fmt.Sprintf("meat-%d", i), model.CategoryMeat, false))
	}
	for i := 0; i < veg; i++ {
		out = append(out, dish(fmt.Sprintf("veg-%d", i), model.CategoryVegetarian, false))
	}
	for i := 0; i < fish; i++ {
		out = append(out, dish(fmt.Sprintf("fish-%d", i), model.CategoryFish, false))
	}
	return out
}

func countByCategory(res Result) map[model.Category]int {
	counts := map[model.Category]int{}
	for _, d := range res.Assignments {
		counts[d.Category]++
	}
	return counts
}

func hasRepeat(res Result) bool {
	seen := map[uuid.UUID]bool{}
	for _, d := range res.Assignments {
		if seen[d.ID] {
			return true
		}
		seen[d.ID] = true
	}
	return false
}

func TestAllocateEmptyCatalog(t *testing.T) {
	res := NewSeeded(1).Allocate(Input{Quotas: model.DefaultQuotas()})

	assert.Empty(t, res.Assignments)
	assert.Equal(t, []string{WarnNoDishes}, res.Warnings)
}

func TestAllocateTenDishesMeetsQuotas(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		res := NewSeeded(seed).Allocate(Input{
			Dishes: catalog(4, 4, 2),
			Quotas: model.DefaultQuotas(),
		})

		require.Len(t, res.Assignments, model.DaysPerWeek)
		assert.Empty(t, res.Warnings)
		assert.False(t, hasRepeat(res))

		counts := countByCategory(res)
		assert.GreaterOrEqual(t, counts[model.CategoryMeat], 2)
		assert.GreaterOrEqual(t, counts[model.CategoryVegetarian], 2)
		assert.GreaterOrEqual(t, counts[model.CategoryFish], 1)
	}
}

func TestAllocateExactQuotaWhenTotalIsSeven(t *testing.T) {
	quotas := model.CategoryQuota{
		model.CategoryMeat:       3,
		model.CategoryVegetarian: 2,
		model.CategoryFish:       2,
	}
	res := NewSeeded(7).Allocate(Input{Dishes: catalog(5, 5, 5), Quotas: quotas})

	require.Len(t, res.Assignments, model.DaysPerWeek)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, map[model.Category]int{
		model.CategoryMeat:       3,
		model.CategoryVegetarian: 2,
		model.CategoryFish:       2,
	}, countByCategory(res))
}

func TestAllocateThreeDishesRepeats(t *testing.T) {
	res := NewSeeded(3).Allocate(Input{
		Dishes: catalog(1, 1, 1),
		Quotas: model.DefaultQuotas(),
	})

	assert.Len(t, res.Assignments, model.DaysPerWeek)
	assert.True(t, hasRepeat(res))
	assert.True(t, res.HasWarning(WarnInsufficientVariety))
	assert.True(t, res.HasWarning(ShortfallWarning(model.CategoryMeat, 1, 2)))
	assert.True(t, res.HasWarning(ShortfallWarning(model.CategoryVegetarian, 1, 2)))

	// The variety warning is emitted once even though two phases hit it.
	n := 0
	for _, w := range res.Warnings {
		if w == WarnInsufficientVariety {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestAllocateSkipsRecentDishes(t *testing.T) {
	dishes := catalog(5, 5, 4)
	recent := map[uuid.UUID]struct{}{}
	for _, d := range dishes[:4] {
		recent[d.ID] = struct{}{}
	}

	for seed := uint64(0); seed < 30; seed++ {
		res := NewSeeded(seed).Allocate(Input{Dishes: dishes, Quotas: model.DefaultQuotas(), RecentDishIDs: recent})

		require.Len(t, res.Assignments, model.DaysPerWeek)
		for _, d := range res.Assignments {
			_, used := recent[d.ID]
			assert.False(t, used, "recent dish %s was assigned", d.Name)
		}
	}
}

func TestAllocateBypassesRecencyWhenPoolTooSmall(t *testing.T) {
	dishes := catalog(3, 3, 2)
	recent := map[uuid.UUID]struct{}{
		dishes[0].ID: {},
		dishes[3].ID: {},
	}

	res := NewSeeded(11).Allocate(Input{Dishes: dishes, Quotas: model.DefaultQuotas(), RecentDishIDs: recent})

	assert.Len(t, res.Assignments, model.DaysPerWeek)
	assert.True(t, res.HasWarning(WarnInsufficientVariety))
	assert.False(t, hasRepeat(res))
}

func TestAllocateShortfallWarning(t *testing.T) {
	quotas := model.CategoryQuota{model.CategoryFish: 3}
	res := NewSeeded(5).Allocate(Input{Dishes: catalog(6, 6, 1), Quotas: quotas})

	assert.Len(t, res.Assignments, model.DaysPerWeek)
	assert.Equal(t, []string{ShortfallWarning(model.CategoryFish, 1, 3)}, res.Warnings)
	assert.False(t, hasRepeat(res))
}

func TestAllocateEmptyCategoryPool(t *testing.T) {
	res := NewSeeded(5).Allocate(Input{Dishes: catalog(5, 5, 0), Quotas: model.DefaultQuotas()})

	assert.Contains(t, res.Warnings, ShortfallWarning(model.CategoryFish, 0, 1))
	assert.Equal(t, 0, countByCategory(res)[model.CategoryFish])
}

func TestAllocateQuotaAboveSevenUsesPriorityOrder(t *testing.T) {
	quotas := model.CategoryQuota{
		model.CategoryMeat:       5,
		model.CategoryVegetarian: 4,
		model.CategoryFish:       2,
	}
	res := NewSeeded(9).Allocate(Input{Dishes: catalog(6, 6, 6), Quotas: quotas})

	require.Len(t, res.Assignments, model.DaysPerWeek)
	counts := countByCategory(res)
	assert.Equal(t, 5, counts[model.CategoryMeat])
	assert.Equal(t, 2, counts[model.CategoryVegetarian])
	assert.Equal(t, 0, counts[model.CategoryFish])
	assert.Equal(t, []string{
		NoOpenDaysWarning(model.CategoryVegetarian, 2, 4),
		NoOpenDaysWarning(model.CategoryFish, 0, 2),
	}, res.Warnings)
}

func TestAllocateZeroQuotasFreeFills(t *testing.T) {
	res := NewSeeded(2).Allocate(Input{Dishes: catalog(3, 3, 3), Quotas: model.CategoryQuota{}})

	assert.Len(t, res.Assignments, model.DaysPerWeek)
	assert.Empty(t, res.Warnings)
	assert.False(t, hasRepeat(res))
}

func TestAllocateDeterministicWithSeed(t *testing.T) {
	dishes := catalog(4, 4, 4)
	in := Input{Dishes: dishes, Quotas: model.DefaultQuotas()}

	first := NewSeeded(42).Allocate(in)
	second := NewSeeded(42).Allocate(in)

	assert.Equal(t, first, second)
}

func TestSampleFavoritesPreferred(t *testing.T) {
	fav := dish("fav", model.CategoryMeat, true)
	plain := dish("plain", model.CategoryMeat, false)
	a := NewSeeded(99)

	const trials = 4000
	favWins := 0
	for i := 0; i < trials; i++ {
		picked := a.sample([]model.Dish{plain, fav}, 1)
		require.Len(t, picked, 1)
		if picked[0].ID == fav.ID {
			favWins++
		}
	}

	// With weights 3:1 the favorite is drawn first three times out of four.
	assert.InDelta(t, 0.75, float64(favWins)/trials, 0.04)
}

func TestSampleDistinct(t *testing.T) {
	pool := []model.Dish{
		dish("a", model.CategoryFish, true),
		dish("b", model.CategoryFish, true),
		dish("c", model.CategoryFish, false),
	}
	picked := NewSeeded(1).sample(pool, 5)

	assert.Len(t, picked, 3)
	assert.ElementsMatch(t, pool, picked)
}

func TestAllocateProperties(t *testing.T) {
	for seed := uint64(0); seed < 200; seed++ {
		a := NewSeeded(seed)
		rng := NewRand(seed + 1000)

		meat, veg, fish := rng.IntN(6), rng.IntN(6), rng.IntN(6)
		dishes := catalog(meat, veg, fish)
		for i := range dishes {
			dishes[i].IsFavorite = rng.IntN(3) == 0
		}
		quotas := model.CategoryQuota{
			model.CategoryMeat:       rng.IntN(8),
			model.CategoryVegetarian: rng.IntN(8),
			model.CategoryFish:       rng.IntN(8),
		}

		res := a.Allocate(Input{Dishes: dishes, Quotas: quotas})

		assert.LessOrEqual(t, len(res.Assignments), model.DaysPerWeek)
		for day := range res.Assignments {
			assert.True(t, day.Valid())
		}
		if hasRepeat(res) {
			assert.True(t, res.HasWarning(WarnInsufficientVariety), "seed %d repeated without warning", seed)
		}
		if len(dishes) > 0 {
			assert.Len(t, res.Assignments, model.DaysPerWeek)
		}

		pool := map[model.Category]int{
			model.CategoryMeat:       meat,
			model.CategoryVegetarian: veg,
			model.CategoryFish:       fish,
		}
		for _, c := range model.Categories {
			if len(dishes) > 0 && quotas[c] > pool[c] {
				found := false
				for achieved := 0; achieved <= pool[c]; achieved++ {
					if res.HasWarning(ShortfallWarning(c, achieved, quotas[c])) {
						found = true
					}
				}
				assert.True(t, found, "seed %d: missing shortfall warning for %s", seed, c)
			}
		}
	}
}
