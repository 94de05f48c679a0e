package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/http/controller/dto"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/orchestrator"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/utils"
)

func (ctrl *Controller) ListOffers(c *gin.Context) {
	ctx := c.Request.Context()
	if utils.GetRoleFromContext(c) != entity.ActorProvider {
		ctrl.writeError(c, "Offer", orchestrator.ErrWrongRole)
		return
	}
	providerID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	offers, err := ctrl.Matching.PendingOffers(ctx, providerID)
	if err != nil {
		ctrl.writeError(c, "Offer", err)
		return
	}
	utils.JSON200(c, gin.H{"offers": offers})
}

func (ctrl *Controller) AcceptOffer(c *gin.Context) {
	ctx := c.Request.Context()
	jobID, ok := ctrl.jobIDParam(c, "job_id")
	if !ok {
		return
	}
	s, ok := ctrl.session(c, "Offer")
	if !ok {
		return
	}

	var req dto.AcceptOfferRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}

	job, err := s.Accept(ctx, jobID, req.PriceEstimate)
	if err != nil {
		ctrl.writeError(c, "Offer", err)
		return
	}
	ctrl.Logger.InfoWithContextf(ctx, "[Offer] Provider %s accepted job %s", s.ActorID(), jobID)
	utils.JSON200(c, gin.H{"job": dto.NewJobResponse(job)})
}

func (ctrl *Controller) DeclineOffer(c *gin.Context) {
	jobID, ok := ctrl.jobIDParam(c, "job_id")
	if !ok {
		return
	}
	s, ok := ctrl.session(c, "Offer")
	if !ok {
		return
	}
	if err := s.Decline(c.Request.Context(), jobID); err != nil {
		ctrl.writeError(c, "Offer", err)
		return
	}
	utils.JSON200(c, gin.H{"message": "Offer declined"})
}
