package controller

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/http/controller/dto"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/tracking"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/utils"
)

// PushLocation takes one device fix from the provider app.
func (ctrl *Controller) PushLocation(c *gin.Context) {
	s, ok := ctrl.session(c, "Tracking")
	if !ok {
		return
	}
	var req dto.LocationRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}
	if err := s.PushLocation(c.Request.Context(), req.Position()); err != nil {
		ctrl.writeError(c, "Tracking", err)
		return
	}
	c.Status(http.StatusAccepted)
}

// ReportPositionError forwards a device read failure to the running watch.
func (ctrl *Controller) ReportPositionError(c *gin.Context) {
	s, ok := ctrl.session(c, "Tracking")
	if !ok {
		return
	}
	var req dto.PositionErrorRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}
	s.ReportPositionError(tracking.ErrorCode(req.Code), req.Message)
	c.Status(http.StatusAccepted)
}

// StreamEvents pushes the current job after every change, and tracker
// position errors to providers, as server-sent events.
func (ctrl *Controller) StreamEvents(c *gin.Context) {
	s, ok := ctrl.session(c, "Events")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	updates := s.Updates()
	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	if job := s.Current(); job != nil {
		c.SSEvent("job", dto.NewJobResponse(job))
	}
	c.Stream(func(w io.Writer) bool {
		errs := s.TrackerErrors()
		select {
		case <-ctx.Done():
			return false
		case job := <-updates:
			c.SSEvent("job", dto.NewJobResponse(job))
		case perr, ok := <-errs:
			if ok {
				c.SSEvent("position_error", gin.H{"code": perr.Code, "message": perr.Message, "at": perr.At})
			}
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().Unix())
		}
		return true
	})
}
