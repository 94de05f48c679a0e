package middlewares

import (
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/config"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/utils"
)

func AuthMiddleware(cfg *config.EnvConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := utils.ExtractToken(c)
		if tokenStr == "" {
			// EventSource cannot set headers
			tokenStr = c.Query("access_token")
		}
		if tokenStr == "" {
			utils.JSON401(c, "Authorization token is required")
			return
		}

		parsedToken, err := utils.ParseToken(tokenStr, cfg)
		if err != nil || !parsedToken.Valid {
			utils.JSON401(c, "Invalid or expired token")
			return
		}

		claims, ok := parsedToken.Claims.(jwt.MapClaims)
		if !ok {
			utils.JSON401(c, "Invalid token claims")
			return
		}
		if err := utils.InjectClaimsToContext(c, claims); err != nil {
			utils.JSON401(c, "Invalid claims")
			return
		}

		c.Next()
	}
}

// RequireRole admits only tokens carrying one of roles.
func RequireRole(roles ...entity.ActorRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !slices.Contains(roles, utils.GetRoleFromContext(c)) {
			utils.JSON403(c, "Forbidden")
			return
		}
		c.Next()
	}
}
