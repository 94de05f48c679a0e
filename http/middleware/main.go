package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/http/controller"
)

type Middlewares struct {
	CORSMiddleware  gin.HandlerFunc
	AuthMiddleware  gin.HandlerFunc
	AdminMiddleware gin.HandlerFunc
}

func NewMiddlewares(ctrl *controller.Controller) (*Middlewares, error) {
	return &Middlewares{
		CORSMiddleware:  CORSMiddleware(ctrl.Config.EnvConfig),
		AuthMiddleware:  AuthMiddleware(ctrl.Config.EnvConfig),
		AdminMiddleware: RequireRole(entity.ActorAdmin),
	}, nil
}
