package controller

import (
	"context"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/utils"
)

// Healthz probes every backing service with a shared deadline.
func (ctrl *Controller) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(ctrl.Checks))
	for name := range ctrl.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := gin.H{}
	healthy := true
	for _, name := range names {
		if err := ctrl.Checks[name](ctx); err != nil {
			ctrl.Logger.WarningWithContextf(ctx, "[Health] %s unhealthy: %v", name, err)
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	if !healthy {
		utils.JSON503(c, gin.H{"status": "degraded", "checks": status})
		return
	}
	utils.JSON200(c, gin.H{"status": "ok", "checks": status})
}
