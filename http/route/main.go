package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/http/controller"
	middlewares "github.com/yonathanegr-cmyk/Service-Booking-App-sub003/http/middleware"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.Default()
	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}
	r.Use(middles.CORSMiddleware)

	r.GET("/healthz", ctrl.Healthz)

	apiRoutes := r.Group("/api/v1/booking")
	{
		apiRoutes.Use(middles.AuthMiddleware)

		apiRoutes.GET("/session", ctrl.GetSession)
		apiRoutes.GET("/events", ctrl.StreamEvents)

		jobRoutes := apiRoutes.Group("/jobs")
		{
			jobRoutes.POST("/", ctrl.StartSearch)
			jobRoutes.GET("/current", ctrl.GetCurrentJob)
			jobRoutes.POST("/current/rematch", ctrl.Rematch)
			jobRoutes.POST("/current/status", ctrl.AdvanceStatus)
			jobRoutes.POST("/current/cancel", ctrl.CancelJob)
			jobRoutes.POST("/current/security-code", ctrl.VerifySecurityCode)
			jobRoutes.PUT("/current/price", ctrl.UpdatePrice)
			jobRoutes.POST("/current/evidence", ctrl.UploadEvidence)
			jobRoutes.POST("/current/location", ctrl.PushLocation)
			jobRoutes.POST("/current/location/error", ctrl.ReportPositionError)
			jobRoutes.GET("/:id/logs", ctrl.GetJobLogs)
		}

		offerRoutes := apiRoutes.Group("/offers")
		{
			offerRoutes.GET("/", ctrl.ListOffers)
			offerRoutes.POST("/:job_id/accept", ctrl.AcceptOffer)
			offerRoutes.POST("/:job_id/decline", ctrl.DeclineOffer)
		}

		adminRoutes := apiRoutes.Group("/admin")
		{
			adminRoutes.Use(middles.AdminMiddleware)

			adminRoutes.GET("/jobs/:id", ctrl.AdminGetJob)
			adminRoutes.POST("/jobs/:id/assign", ctrl.AdminAssignProvider)
			adminRoutes.POST("/jobs/:id/status", ctrl.AdminUpdateStatus)
			adminRoutes.POST("/jobs/:id/payments", ctrl.AdminRecordPayment)
		}
	}
	return r
}
