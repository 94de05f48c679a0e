package controller

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/http/controller/dto"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/lifecycle"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/orchestrator"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/utils"
)

// GetSession returns the caller's current job, restoring it on first use.
func (ctrl *Controller) GetSession(c *gin.Context) {
	s, ok := ctrl.session(c, "Session")
	if !ok {
		return
	}
	utils.JSON200(c, gin.H{
		"role": s.Role(),
		"job":  dto.NewJobResponse(s.Current()),
	})
}

func (ctrl *Controller) StartSearch(c *gin.Context) {
	ctx := c.Request.Context()
	s, ok := ctrl.session(c, "Job")
	if !ok {
		return
	}

	var req dto.StartSearchRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Logger.ErrorWithContextf(ctx, err, "[Job] Failed to bind JSON: %v", err)
		utils.JSON400(c, "Invalid request payload")
		return
	}

	result, err := s.StartSearch(ctx, orchestrator.SearchRequest{
		Location:      req.Location,
		Service:       req.Service,
		ScheduledFor:  req.ScheduledFor,
		Currency:      req.Currency,
		MaxDistanceKm: req.MaxDistanceKm,
	})
	if err != nil && (result == nil || result.Job == nil) {
		ctrl.writeError(c, "Job", err)
		return
	}
	if err != nil {
		// the job exists; the client can retry matching
		ctrl.Logger.ErrorWithContextf(ctx, err, "[Job] Matching failed for job %s", result.Job.ID)
	}

	ctrl.Logger.InfoWithContextf(ctx, "[Job] Job %s searching with %d candidates", result.Job.ID, len(result.Candidates))
	utils.JSON201(c, gin.H{
		"job":           dto.NewJobResponse(result.Job),
		"candidates":    result.Candidates,
		"offers_sent":   len(result.Offers),
		"matching_done": err == nil,
	})
}

func (ctrl *Controller) Rematch(c *gin.Context) {
	s, ok := ctrl.session(c, "Job")
	if !ok {
		return
	}
	result, err := s.Rematch(c.Request.Context())
	if err != nil {
		ctrl.writeError(c, "Job", err)
		return
	}
	utils.JSON200(c, gin.H{
		"job":         dto.NewJobResponse(result.Job),
		"candidates":  result.Candidates,
		"offers_sent": len(result.Offers),
	})
}

func (ctrl *Controller) GetCurrentJob(c *gin.Context) {
	s, ok := ctrl.session(c, "Job")
	if !ok {
		return
	}
	job, err := s.Refresh(c.Request.Context())
	if err != nil {
		ctrl.writeError(c, "Job", err)
		return
	}
	utils.JSON200(c, gin.H{"job": dto.NewJobResponse(job)})
}

func (ctrl *Controller) AdvanceStatus(c *gin.Context) {
	ctx := c.Request.Context()
	s, ok := ctrl.session(c, "Job")
	if !ok {
		return
	}

	var req dto.AdvanceStatusRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}
	to, err := lifecycle.ParseStatus(req.Status)
	if err != nil {
		utils.JSON400(c, err.Error())
		return
	}

	job, err := s.AdvanceStatus(ctx, to, req.Metadata)
	if err != nil {
		ctrl.writeError(c, "Job", err)
		return
	}
	utils.JSON200(c, gin.H{"job": dto.NewJobResponse(job)})
}

func (ctrl *Controller) CancelJob(c *gin.Context) {
	s, ok := ctrl.session(c, "Job")
	if !ok {
		return
	}
	var req dto.CancelRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.JSON400(c, "Invalid request payload")
		return
	}
	job, err := s.Cancel(c.Request.Context(), req.Reason)
	if err != nil {
		ctrl.writeError(c, "Job", err)
		return
	}
	utils.JSON200(c, gin.H{"job": dto.NewJobResponse(job)})
}

func (ctrl *Controller) VerifySecurityCode(c *gin.Context) {
	s, ok := ctrl.session(c, "Job")
	if !ok {
		return
	}
	var req dto.SecurityCodeRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}
	job, err := s.VerifySecurityCode(c.Request.Context(), req.Code)
	if err != nil {
		ctrl.writeError(c, "Job", err)
		return
	}
	utils.JSON200(c, gin.H{"job": dto.NewJobResponse(job)})
}

// UpdatePrice sets the final price of the caller's current job.
func (ctrl *Controller) UpdatePrice(c *gin.Context) {
	s, ok := ctrl.session(c, "Job")
	if !ok {
		return
	}
	actor, ok := ctrl.actor(c)
	if !ok {
		return
	}
	var req dto.UpdatePriceRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}
	current := s.Current()
	if current == nil {
		ctrl.writeError(c, "Job", orchestrator.ErrNoCurrentJob)
		return
	}

	job, err := ctrl.Jobs.UpdatePrice(c.Request.Context(), current.ID, req.FinalPrice, actor)
	if err != nil {
		ctrl.writeError(c, "Job", err)
		return
	}
	utils.JSON200(c, gin.H{"job": dto.NewJobResponse(job)})
}

// GetJobLogs returns the audit trail of a job the caller takes part in.
func (ctrl *Controller) GetJobLogs(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := ctrl.jobIDParam(c, "id")
	if !ok {
		return
	}
	job, err := ctrl.Jobs.Get(ctx, id, false)
	if err != nil {
		ctrl.writeError(c, "Job", err)
		return
	}
	if !participates(c, job) {
		utils.JSON403(c, "Forbidden")
		return
	}
	logs, err := ctrl.Jobs.Logs(ctx, id)
	if err != nil {
		ctrl.writeError(c, "Job", err)
		return
	}
	utils.JSON200(c, gin.H{"logs": logs})
}
