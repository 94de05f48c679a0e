package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/config"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

func ExtractToken(c *gin.Context) string {
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token
	}
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

func ParseToken(tokenString string, cfg *config.EnvConfig) (*jwt.Token, error) {
	secret := []byte(cfg.JWT.SecretKey)
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
}

// GenerateToken signs an access token for the actor; used by tooling and tests.
func GenerateToken(cfg *config.EnvConfig, userID uuid.UUID, role entity.ActorRole, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"role":    string(role),
		"iat":     now.Unix(),
		"exp":     now.Add(time.Duration(cfg.JWT.Expire) * time.Second).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWT.SecretKey))
}

func InjectClaimsToContext(c *gin.Context, claims jwt.MapClaims) error {
	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return errors.New("invalid user_id format")
	}
	if _, err := uuid.Parse(userIDStr); err != nil {
		return errors.New("invalid user_id format")
	}
	c.Set(ContextUserID, userIDStr)

	role, _ := claims["role"].(string)
	if !entity.ActorRole(role).Valid() || entity.ActorRole(role) == entity.ActorSystem {
		return errors.New("invalid role")
	}
	c.Set(ContextRole, role)
	return nil
}

func GetUserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	raw, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, errors.New("user_id is missing from context")
	}
	switch v := raw.(type) {
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, errors.New("invalid user_id format: " + err.Error())
		}
		return id, nil
	case uuid.UUID:
		return v, nil
	}
	return uuid.Nil, errors.New("invalid user_id type in context")
}

func GetRoleFromContext(c *gin.Context) entity.ActorRole {
	return entity.ActorRole(c.GetString(ContextRole))
}
