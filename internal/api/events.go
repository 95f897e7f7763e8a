package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iappwebdev/mahl-zeit-planer/internal/middleware"
	"github.com/iappwebdev/mahl-zeit-planer/internal/reconciler"
)

const eventsKeepAlive = 25 * time.Second

// Events streams the week as server-sent events. A "week" event is sent on
// connect and after every change that affects the week.
func (h *MealPlanHandler) Events(c *gin.Context) {
	scopeID, ok := requestScope(c)
	if !ok {
		return
	}
	if h.subscriber == nil {
		c.JSON(http.StatusServiceUnavailable, middleware.ErrorResponse{Error: "change stream not configured"})
		return
	}

	obs, err := reconciler.New(h.mealPlans, h.subscriber, scopeID, c.Param("weekStart"), h.logger)
	if err != nil {
		writeError(c, err)
		return
	}

	// Only the latest state matters, so a pending update is replaced.
	updates := make(chan reconciler.Week, 1)
	obs.OnUpdate(func(w reconciler.Week) {
		select {
		case <-updates:
		default:
		}
		updates <- w
	})

	ctx := c.Request.Context()
	if err := obs.Start(ctx); err != nil {
		obs.Close()
		writeError(c, err)
		return
	}
	defer obs.Close()

	// The initial load already queued the week; it is sent once below.
	select {
	case <-updates:
	default:
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("week", toObservedWeekResponse(obs.Week()))
	c.Writer.Flush()

	keepAlive := time.NewTicker(eventsKeepAlive)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case week := <-updates:
			c.SSEvent("week", toObservedWeekResponse(week))
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})

	h.logger.Debug("event stream closed", zap.String("scope_id", scopeID.String()))
}
