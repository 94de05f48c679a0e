package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/http/controller/dto"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra/produce"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/lifecycle"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/utils"
)

// AdminGetJob reads any job straight from the store.
func (ctrl *Controller) AdminGetJob(c *gin.Context) {
	id, ok := ctrl.jobIDParam(c, "id")
	if !ok {
		return
	}
	job, err := ctrl.Jobs.Get(c.Request.Context(), id, true)
	if err != nil {
		ctrl.writeError(c, "Admin", err)
		return
	}
	utils.JSON200(c, gin.H{"job": dto.NewJobResponse(job)})
}

// AdminAssignProvider hands a searching job to a chosen provider, who still
// has to accept it.
func (ctrl *Controller) AdminAssignProvider(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := ctrl.jobIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.AssignProviderRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}

	job, err := ctrl.Jobs.AssignProvider(ctx, id, uuid.MustParse(req.ProviderID), req.PriceEstimate)
	if err != nil {
		ctrl.writeError(c, "Admin", err)
		return
	}
	ctrl.Logger.InfoWithContextf(ctx, "[Admin] Assigned provider %s to job %s", req.ProviderID, id)
	utils.JSON200(c, gin.H{"job": dto.NewJobResponse(job)})
}

func (ctrl *Controller) AdminUpdateStatus(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := ctrl.jobIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := ctrl.actor(c)
	if !ok {
		return
	}
	var req dto.AdminStatusRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}
	to, err := lifecycle.ParseStatus(req.Status)
	if err != nil {
		utils.JSON400(c, err.Error())
		return
	}

	var metadata map[string]any
	if req.Reason != "" {
		metadata = map[string]any{"reason": req.Reason}
	}
	job, err := ctrl.Jobs.UpdateStatus(ctx, id, to, actor, metadata)
	if err != nil {
		ctrl.writeError(c, "Admin", err)
		return
	}
	utils.JSON200(c, gin.H{"job": dto.NewJobResponse(job)})
}

// AdminRecordPayment enqueues a signed payment signal for an offline
// settlement; the payment consumer applies it like any provider callback.
func (ctrl *Controller) AdminRecordPayment(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := ctrl.jobIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.PaymentEventRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}
	if _, err := ctrl.Jobs.Get(ctx, id, false); err != nil {
		ctrl.writeError(c, "Admin", err)
		return
	}

	err := ctrl.Payments.PublishPaymentEvent(ctx, produce.PaymentEvent{
		JobID:     id.String(),
		Outcome:   produce.PaymentOutcome(req.Outcome),
		Reference: req.Reference,
		Amount:    req.Amount,
		Currency:  req.Currency,
	})
	if err != nil {
		ctrl.Logger.ErrorWithContextf(ctx, err, "[Admin] Failed to publish payment %s for job %s", req.Reference, id)
		utils.JSON500(c, "Failed to publish payment event")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Payment event queued"})
}
