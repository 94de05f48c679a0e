package controller

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/jobs"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/lifecycle"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/orchestrator"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/tracking"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/utils"
)

// session resolves the caller's booking session, writing the error response
// itself when it cannot.
func (ctrl *Controller) session(c *gin.Context, tag string) (*orchestrator.Session, bool) {
	ctx := c.Request.Context()
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		ctrl.Logger.ErrorWithContextf(ctx, err, "[%s] user_id not found in context", tag)
		utils.JSON401(c, "Unauthorized: user_id not found")
		return nil, false
	}

	s, err := ctrl.Sessions.Session(ctx, utils.GetRoleFromContext(c), userID)
	if err != nil {
		ctrl.writeError(c, tag, err)
		return nil, false
	}
	return s, true
}

// actor is the audit identity of the caller.
func (ctrl *Controller) actor(c *gin.Context) (jobs.Actor, bool) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return jobs.Actor{}, false
	}
	return jobs.NewActor(utils.GetRoleFromContext(c), userID), true
}

func (ctrl *Controller) jobIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.JSON400(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// participates reports whether the caller may read the job.
func participates(c *gin.Context, job *entity.Job) bool {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		return false
	}
	switch utils.GetRoleFromContext(c) {
	case entity.ActorAdmin:
		return true
	case entity.ActorClient:
		return job.ClientID == userID
	case entity.ActorProvider:
		return job.ProviderID != nil && *job.ProviderID == userID
	}
	return false
}

func (ctrl *Controller) writeError(c *gin.Context, tag string, err error) {
	ctx := c.Request.Context()
	var transition *lifecycle.TransitionError

	switch {
	case errors.Is(err, jobs.ErrNotFound), errors.Is(err, orchestrator.ErrNoCurrentJob):
		utils.JSON404(c, err.Error())
	case errors.Is(err, orchestrator.ErrWrongRole):
		utils.JSON403(c, err.Error())
	case errors.Is(err, lifecycle.ErrGuardFailed), errors.Is(err, jobs.ErrValidation), errors.Is(err, jobs.ErrSecurityCodeMismatch):
		utils.JSON422(c, err.Error())
	case errors.As(err, &transition),
		errors.Is(err, orchestrator.ErrNoLongerAvailable),
		errors.Is(err, jobs.ErrActiveJobExists),
		errors.Is(err, jobs.ErrProviderBusy),
		errors.Is(err, jobs.ErrJobClosed):
		utils.JSON409(c, err.Error())
	case errors.Is(err, tracking.ErrRateLimited):
		utils.JSON429(c, err.Error())
	default:
		ctrl.Logger.ErrorWithContextf(ctx, err, "[%s] Request failed", tag)
		utils.JSON500(c, "Internal server error")
		return
	}
	ctrl.Logger.WarningWithContextf(ctx, "[%s] Request rejected: %v", tag, err)
}
