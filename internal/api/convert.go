package api

import (
	"github.com/iappwebdev/mahl-zeit-planer/internal/model"
	"github.com/iappwebdev/mahl-zeit-planer/internal/reconciler"
	"github.com/iappwebdev/mahl-zeit-planer/internal/service"
	"github.com/iappwebdev/mahl-zeit-planer/internal/types"
)

func toDishResponse(d model.Dish) types.DishResponse {
	return types.DishResponse{
		ID:         d.ID,
		Name:       d.Name,
		Category:   string(d.Category),
		IsFavorite: d.IsFavorite,
	}
}

func toAssignmentResponse(a model.Assignment, dates []string) types.AssignmentResponse {
	resp := types.AssignmentResponse{
		ID:        a.ID,
		Day:       a.DayOfWeek.String(),
		DayOfWeek: int(a.DayOfWeek),
		UpdatedAt: a.UpdatedAt,
	}
	if a.DayOfWeek.Valid() && int(a.DayOfWeek) < len(dates) {
		resp.Date = dates[a.DayOfWeek]
	}
	if a.Dish != nil {
		dish := toDishResponse(*a.Dish)
		resp.Dish = &dish
	}
	return resp
}

func toWeekResponse(weekStart string, week map[model.Day]model.Assignment) types.WeekResponse {
	dates, _ := model.WeekDates(weekStart)
	resp := types.WeekResponse{WeekStart: weekStart, Days: []types.AssignmentResponse{}}
	for _, day := range model.AllDays() {
		if a, ok := week[day]; ok {
			resp.Days = append(resp.Days, toAssignmentResponse(a, dates))
		}
	}
	return resp
}

// toObservedWeekResponse lists the stored days of an observer snapshot.
func toObservedWeekResponse(w reconciler.Week) types.WeekResponse {
	week := make(map[model.Day]model.Assignment, len(w.Slots))
	for day, slot := range w.Slots {
		if slot.Assignment != nil {
			week[day] = *slot.Assignment
		}
	}
	return toWeekResponse(w.WeekStart, week)
}

func toAllocationResponse(alloc *service.Allocation) types.AllocationResponse {
	dates, _ := model.WeekDates(alloc.WeekStart)
	resp := types.AllocationResponse{
		WeekStart: alloc.WeekStart,
		Days:      []types.PlannedDayResponse{},
		Warnings:  alloc.Warnings,
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	for _, day := range model.AllDays() {
		dish, ok := alloc.Assignments[day]
		if !ok {
			continue
		}
		resp.Days = append(resp.Days, types.PlannedDayResponse{
			Day:       day.String(),
			DayOfWeek: int(day),
			Date:      dates[day],
			Dish:      toDishResponse(dish),
		})
	}
	return resp
}

func toQuotasResponse(q model.CategoryQuota) types.QuotasResponse {
	return types.QuotasResponse{
		Meat:       q[model.CategoryMeat],
		Vegetarian: q[model.CategoryVegetarian],
		Fish:       q[model.CategoryFish],
	}
}

func toActivityResponse(e model.ActivityEntry) types.ActivityResponse {
	return types.ActivityResponse{
		ID:         e.ID,
		ActorID:    e.ActorID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityName: e.EntityName,
		WeekStart:  e.WeekStart,
		CreatedAt:  e.CreatedAt,
	}
}
