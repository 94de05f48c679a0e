package middlewares

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/config"
)

func CORSMiddleware(cfg *config.EnvConfig) gin.HandlerFunc {
	var origins []string
	for _, d := range strings.Split(cfg.CORS.AllowDomains, ",") {
		if d = strings.TrimSpace(d); d != "" {
			origins = append(origins, d)
		}
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		corsCfg.AllowOriginFunc = func(origin string) bool {
			return cfg.CORS.GlobalDomain != "" && strings.HasSuffix(origin, cfg.CORS.GlobalDomain)
		}
	} else {
		corsCfg.AllowOrigins = origins
	}
	return cors.New(corsCfg)
}
