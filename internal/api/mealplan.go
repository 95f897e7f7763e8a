package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iappwebdev/mahl-zeit-planer/internal/middleware"
	"github.com/iappwebdev/mahl-zeit-planer/internal/model"
	"github.com/iappwebdev/mahl-zeit-planer/internal/realtime"
	"github.com/iappwebdev/mahl-zeit-planer/internal/service"
	"github.com/iappwebdev/mahl-zeit-planer/internal/types"
)

// MealPlanHandler serves dishes, preferences, weeks and the activity feed.
type MealPlanHandler struct {
	mealPlans  service.IMealPlanService
	subscriber realtime.Subscriber
	logger     *zap.Logger
}

func NewMealPlanHandler(mealPlans service.IMealPlanService, subscriber realtime.Subscriber, logger *zap.Logger) *MealPlanHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MealPlanHandler{
		mealPlans:  mealPlans,
		subscriber: subscriber,
		logger:     logger,
	}
}

// RegisterRoutes mounts the handler under router. generateLimit guards the
// regenerate endpoint and may be nil.
func (h *MealPlanHandler) RegisterRoutes(router *gin.RouterGroup, auth gin.HandlerFunc, generateLimit gin.HandlerFunc) {
	protected := router.Group("")
	protected.Use(auth)

	protected.GET("/dishes", h.ListDishes)
	protected.GET("/preferences", h.GetPreferences)
	protected.PUT("/preferences", h.SavePreferences)
	protected.GET("/activity", h.ListActivity)

	weeks := protected.Group("/weeks/:weekStart")
	{
		weeks.GET("", h.GetWeek)
		weeks.POST("/allocate", h.Allocate)
		if generateLimit != nil {
			weeks.POST("/generate", generateLimit, h.Generate)
		} else {
			weeks.POST("/generate", h.Generate)
		}
		weeks.PUT("/days/:day", h.AssignDay)
		weeks.DELETE("/days/:day", h.ClearDay)
		weeks.GET("/events", h.Events)
	}
}

// requestScope reads the authenticated scope and carries the user into the
// request context for the activity log.
func requestScope(c *gin.Context) (uuid.UUID, bool) {
	scopeID, ok := middleware.ScopeID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, middleware.ErrorResponse{Error: "unauthorized"})
		return uuid.Nil, false
	}
	if userID, ok := middleware.UserID(c); ok {
		c.Request = c.Request.WithContext(service.WithActor(c.Request.Context(), userID))
	}
	return scopeID, true
}

func (h *MealPlanHandler) ListDishes(c *gin.Context) {
	scopeID, ok := requestScope(c)
	if !ok {
		return
	}

	dishes, err := h.mealPlans.ListDishes(c.Request.Context(), scopeID)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]types.DishResponse, 0, len(dishes))
	for _, d := range dishes {
		resp = append(resp, toDishResponse(d))
	}
	c.JSON(http.StatusOK, gin.H{"dishes": resp})
}

func (h *MealPlanHandler) GetPreferences(c *gin.Context) {
	scopeID, ok := requestScope(c)
	if !ok {
		return
	}

	quotas, err := h.mealPlans.GetQuotas(c.Request.Context(), scopeID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toQuotasResponse(quotas))
}

// SavePreferences clamps each value to [0,7] before storing; a total above
// seven is still rejected.
func (h *MealPlanHandler) SavePreferences(c *gin.Context) {
	scopeID, ok := requestScope(c)
	if !ok {
		return
	}

	var req types.SaveQuotasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: "invalid request body"})
		return
	}

	quotas := model.CategoryQuota{
		model.CategoryMeat:       req.Meat,
		model.CategoryVegetarian: req.Vegetarian,
		model.CategoryFish:       req.Fish,
	}.Clamp()

	saved, err := h.mealPlans.SaveQuotas(c.Request.Context(), scopeID, quotas)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toQuotasResponse(saved))
}

func (h *MealPlanHandler) GetWeek(c *gin.Context) {
	scopeID, ok := requestScope(c)
	if !ok {
		return
	}
	weekStart := c.Param("weekStart")

	week, err := h.mealPlans.GetWeek(c.Request.Context(), scopeID, weekStart)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWeekResponse(weekStart, week))
}

// Allocate previews a week without storing it.
func (h *MealPlanHandler) Allocate(c *gin.Context) {
	scopeID, ok := requestScope(c)
	if !ok {
		return
	}

	alloc, err := h.mealPlans.Allocate(c.Request.Context(), scopeID, c.Param("weekStart"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAllocationResponse(alloc))
}

// Generate replaces the stored week with a fresh allocation.
func (h *MealPlanHandler) Generate(c *gin.Context) {
	scopeID, ok := requestScope(c)
	if !ok {
		return
	}

	alloc, err := h.mealPlans.RegenerateWeek(c.Request.Context(), scopeID, c.Param("weekStart"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAllocationResponse(alloc))
}

func (h *MealPlanHandler) AssignDay(c *gin.Context) {
	scopeID, ok := requestScope(c)
	if !ok {
		return
	}
	weekStart := c.Param("weekStart")
	day, err := model.ParseDay(c.Param("day"))
	if err != nil {
		writeError(c, err)
		return
	}

	var req types.AssignDayRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DishID == uuid.Nil {
		c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: "dish_id is required"})
		return
	}

	assignment, err := h.mealPlans.AssignDay(c.Request.Context(), scopeID, weekStart, day, req.DishID)
	if err != nil {
		writeError(c, err)
		return
	}

	dates, _ := model.WeekDates(weekStart)
	c.JSON(http.StatusOK, toAssignmentResponse(*assignment, dates))
}

func (h *MealPlanHandler) ClearDay(c *gin.Context) {
	scopeID, ok := requestScope(c)
	if !ok {
		return
	}
	day, err := model.ParseDay(c.Param("day"))
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.mealPlans.ClearDay(c.Request.Context(), scopeID, c.Param("weekStart"), day); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MealPlanHandler) ListActivity(c *gin.Context) {
	scopeID, ok := requestScope(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	entries, err := h.mealPlans.ListActivity(c.Request.Context(), scopeID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]types.ActivityResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toActivityResponse(e))
	}
	c.JSON(http.StatusOK, gin.H{"activity": resp})
}
