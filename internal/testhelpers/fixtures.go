package testhelpers

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iappwebdev/mahl-zeit-planer/internal/model"
)

// SeedDishes inserts meat, vegetarian and fish dishes for scope, named
// "<category>-<n>", and returns them in insertion order.
func SeedDishes(t *testing.T, db *gorm.DB, scopeID uuid.UUID, meat, vegetarian, fish int) []model.Dish {
	t.Helper()

	var dishes []model.Dish
	add := func(c model.Category, n int) {
		for i := 0; i < n; i++ {
			dishes = append(dishes, model.Dish{
				ScopeID:  scopeID,
				Name:     fmt.Sprintf("%s-%d", c, i),
				Category: c,
			})
		}
	}
	add(model.CategoryMeat, meat)
	add(model.CategoryVegetarian, vegetarian)
	add(model.CategoryFish, fish)

	if len(dishes) == 0 {
		return nil
	}
	if err := db.Create(&dishes).Error; err != nil {
		t.Fatalf("failed to seed dishes: %v", err)
	}
	return dishes
}
