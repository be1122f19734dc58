package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/vuthy55/studio-sub006/internal/errors"
	"github.com/vuthy55/studio-sub006/internal/service"
	"github.com/vuthy55/studio-sub006/internal/utils"
)

const (
	contextUserID    = "userId"
	contextJWTSecret = "jwtSecret"
)

// JWTSecretMiddleware makes the signing secret available to AuthMiddleware
func JWTSecretMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		c.Set(contextJWTSecret, key)
		c.Next()
	}
}

// AuthMiddleware returns a Gin middleware for authentication
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get the JWT token from the Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperrors.NewUnauthorizedError("Authentication required"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithError(c, apperrors.NewUnauthorizedError("Invalid token format"))
			return
		}

		jwtSecret := c.MustGet(contextJWTSecret).([]byte)
		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			abortWithError(c, apperrors.NewUnauthorizedError("Invalid token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortWithError(c, apperrors.NewUnauthorizedError("Invalid token claims"))
			return
		}

		userID, ok := claims["sub"].(string)
		if !ok || userID == "" {
			abortWithError(c, apperrors.NewUnauthorizedError("Invalid user ID in token"))
			return
		}

		c.Set(contextUserID, userID)
		c.Next()
	}
}

// RequireAdmin rejects callers whose stored role is not admin
func RequireAdmin(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := svc.GetUser(c.Request.Context(), c.GetString(contextUserID))
		if err != nil {
			if apperrors.HasCode(err, apperrors.CodeNotFound) {
				abortWithError(c, apperrors.NewUnauthorizedError("Unknown user"))
				return
			}
			abortWithError(c, err)
			return
		}
		if !user.IsAdmin() {
			abortWithError(c, apperrors.NewForbiddenError("Admin role required"))
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request
func RequestLogger(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}
		if userID := c.GetString(contextUserID); userID != "" {
			fields["userId"] = userID
		}
		if len(c.Errors) > 0 {
			fields["error"] = c.Errors.Last().Error()
		}

		entry := logger.WithFields(fields)
		if c.Writer.Status() >= 500 {
			entry.Error("Request failed")
			return
		}
		entry.Debug("Request handled")
	}
}
