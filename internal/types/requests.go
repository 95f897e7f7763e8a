package types

import (
	"time"

	"github.com/google/uuid"
)

// AssignDayRequest represents the request body for assigning a dish to a day
type AssignDayRequest struct {
	DishID uuid.UUID `json:"dish_id" binding:"required"`
}

// SaveQuotasRequest represents the request body for storing category quotas
type SaveQuotasRequest struct {
	Meat       int `json:"meat"`
	Vegetarian int `json:"vegetarian"`
	Fish       int `json:"fish"`
}

// QuotasResponse mirrors SaveQuotasRequest for reads
type QuotasResponse struct {
	Meat       int `json:"meat"`
	Vegetarian int `json:"vegetarian"`
	Fish       int `json:"fish"`
}

// DishResponse is the JSON form of a catalog dish
type DishResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	IsFavorite bool      `json:"is_favorite"`
}

// AssignmentResponse is one filled day of a week
type AssignmentResponse struct {
	ID        uuid.UUID     `json:"id"`
	Day       string        `json:"day"`
	DayOfWeek int           `json:"day_of_week"`
	Date      string        `json:"date"`
	Dish      *DishResponse `json:"dish,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// WeekResponse lists the filled days of a week, Monday first
type WeekResponse struct {
	WeekStart string               `json:"week_start"`
	Days      []AssignmentResponse `json:"days"`
}

// PlannedDayResponse is one day of a computed allocation
type PlannedDayResponse struct {
	Day       string       `json:"day"`
	DayOfWeek int          `json:"day_of_week"`
	Date      string       `json:"date"`
	Dish      DishResponse `json:"dish"`
}

// AllocationResponse is returned by allocate and generate
type AllocationResponse struct {
	WeekStart string               `json:"week_start"`
	Days      []PlannedDayResponse `json:"days"`
	Warnings  []string             `json:"warnings"`
}

// ActivityResponse is one activity feed entry
type ActivityResponse struct {
	ID         uuid.UUID `json:"id"`
	ActorID    uuid.UUID `json:"actor_id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityName string    `json:"entity_name"`
	WeekStart  string    `json:"week_start,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
