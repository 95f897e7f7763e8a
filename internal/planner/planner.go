// Package planner assigns dishes to the seven days of a week.
//
// The allocator is a greedy randomized heuristic in three phases: category
// quotas first, then a free fill from any category, then a repeat fallback
// that samples the whole catalog with replacement. It never fails; input
// shortages are reported as warnings next to a possibly partial result.
package planner

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"

	"github.com/iappwebdev/mahl-zeit-planer/internal/model"
)

const (
	// FavoriteWeight is how many times a favorite appears in the sampling multiset.
	FavoriteWeight = 3
	// RegularWeight is the multiplicity of a non-favorite dish.
	RegularWeight = 1
	// DefaultRecencyWeeks is the trailing window whose dishes are avoided.
	DefaultRecencyWeeks = 2
)

const (
	WarnNoDishes            = "no dishes available, add dishes first"
	WarnInsufficientVariety = "not enough dishes for full variety"
)

// ShortfallWarning reports a category whose pool was smaller than its quota.
func ShortfallWarning(c model.Category, achieved, requested int) string {
	return fmt.Sprintf("not enough %s dishes available (%d of %d)", c, achieved, requested)
}

// NoOpenDaysWarning reports a category that ran out of open days because
// earlier categories already used them.
func NoOpenDaysWarning(c model.Category, achieved, requested int) string {
	return fmt.Sprintf("no open days left for %s dishes (%d of %d)", c, achieved, requested)
}

// Input is everything one allocation run reads.
type Input struct {
	Dishes        []model.Dish
	Quotas        model.CategoryQuota
	RecentDishIDs map[uuid.UUID]struct{}
}

// Result maps days to dishes. Missing days stay unassigned.
type Result struct {
	Assignments map[model.Day]model.Dish
	Warnings    []string
}

// HasWarning reports whether msg was emitted.
func (r *Result) HasWarning(msg string) bool {
	return slices.Contains(r.Warnings, msg)
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (r *Result) warnOnce(msg string) {
	if !r.HasWarning(msg) {
		r.warn(msg)
	}
}

// Allocator runs allocations against an injected random source so that runs
// are reproducible under a fixed seed. It is not safe for concurrent use.
type Allocator struct {
	rng *rand.Rand
}

// New returns an allocator drawing from rng.
func New(rng *rand.Rand) *Allocator {
	return &Allocator{rng: rng}
}

// NewSeeded returns an allocator with a PCG source seeded from seed.
func NewSeeded(seed uint64) *Allocator {
	return New(NewRand(seed))
}

// NewRand builds the PCG generator used by NewSeeded.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Allocate fills up to seven days from in. Later phases only touch days
// left open by earlier ones.
func (a *Allocator) Allocate(in Input) Result {
	res := Result{Assignments: make(map[model.Day]model.Dish, model.DaysPerWeek)}

	if len(in.Dishes) == 0 {
		res.warn(WarnNoDishes)
		return res
	}

	available := withoutRecent(in.Dishes, in.RecentDishIDs)
	if countDistinct(available) < model.DaysPerWeek {
		available = in.Dishes
		res.warnOnce(WarnInsufficientVariety)
	}

	pools := byCategory(available)
	used := make(map[uuid.UUID]struct{}, model.DaysPerWeek)
	open := model.AllDays()

	// Phase 1: category quotas in fixed priority order.
	for _, c := range model.Categories {
		requested := in.Quotas[c]
		if requested <= 0 {
			continue
		}

		pool := unused(pools[c], used)
		achievable := min(requested, len(pool))
		placed := min(achievable, len(open))

		switch {
		case achievable < requested:
			res.warn(ShortfallWarning(c, placed, requested))
		case placed < requested:
			res.warn(NoOpenDaysWarning(c, placed, requested))
		}
		if placed == 0 {
			continue
		}

		open = a.place(&res, used, open, a.sample(pool, placed))
	}

	// Phase 2: free fill from whatever is left, any category.
	if len(open) > 0 {
		remaining := unused(available, used)
		open = a.place(&res, used, open, a.sample(remaining, len(open)))
	}

	// Phase 3: repeats from the full catalog, ignoring category and recency.
	if len(open) > 0 {
		res.warnOnce(WarnInsufficientVariety)
		for _, day := range a.shuffled(open) {
			res.Assignments[day] = in.Dishes[a.rng.IntN(len(in.Dishes))]
		}
	}

	return res
}

// place puts dishes on randomly chosen open days and returns the days still open.
func (a *Allocator) place(res *Result, used map[uuid.UUID]struct{}, open []model.Day, dishes []model.Dish) []model.Day {
	days := a.shuffled(open)
	for i, dish := range dishes {
		if i >= len(days) {
			break
		}
		res.Assignments[days[i]] = dish
		used[dish.ID] = struct{}{}
	}

	var still []model.Day
	for _, day := range open {
		if _, ok := res.Assignments[day]; !ok {
			still = append(still, day)
		}
	}
	return still
}

// sample draws up to count distinct dishes. Favorites enter the multiset
// FavoriteWeight times; after a uniform shuffle the first occurrence of each
// identity wins.
func (a *Allocator) sample(pool []model.Dish, count int) []model.Dish {
	if count <= 0 || len(pool) == 0 {
		return nil
	}

	weighted := make([]model.Dish, 0, len(pool)*FavoriteWeight)
	for _, d := range pool {
		for i := 0; i < weight(d); i++ {
			weighted = append(weighted, d)
		}
	}
	a.rng.Shuffle(len(weighted), func(i, j int) {
		weighted[i], weighted[j] = weighted[j], weighted[i]
	})

	seen := make(map[uuid.UUID]struct{}, count)
	picked := make([]model.Dish, 0, count)
	for _, d := range weighted {
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}
		picked = append(picked, d)
		if len(picked) == count {
			break
		}
	}
	return picked
}

func (a *Allocator) shuffled(days []model.Day) []model.Day {
	out := slices.Clone(days)
	a.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func weight(d model.Dish) int {
	if d.IsFavorite {
		return FavoriteWeight
	}
	return RegularWeight
}

func withoutRecent(dishes []model.Dish, recent map[uuid.UUID]struct{}) []model.Dish {
	if len(recent) == 0 {
		return dishes
	}
	out := make([]model.Dish, 0, len(dishes))
	for _, d := range dishes {
		if _, ok := recent[d.ID]; !ok {
			out = append(out, d)
		}
	}
	return out
}

func unused(dishes []model.Dish, used map[uuid.UUID]struct{}) []model.Dish {
	out := make([]model.Dish, 0, len(dishes))
	seen := make(map[uuid.UUID]struct{}, len(dishes))
	for _, d := range dishes {
		if _, ok := used[d.ID]; ok {
			continue
		}
		if _, ok := seen[d.ID]; ok {
			continue
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	return out
}

func countDistinct(dishes []model.Dish) int {
	seen := make(map[uuid.UUID]struct{}, len(dishes))
	for _, d := range dishes {
		seen[d.ID] = struct{}{}
	}
	return len(seen)
}

func byCategory(dishes []model.Dish) map[model.Category][]model.Dish {
	pools := make(map[model.Category][]model.Dish, len(model.Categories))
	for _, d := range dishes {
		pools[d.Category] = append(pools[d.Category], d)
	}
	return pools
}
