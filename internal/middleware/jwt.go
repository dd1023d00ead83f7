package middleware

import (
	"net/http"                    // HTTP status codes
	"strings"                     // String manipulation
	"task_wallet/internal/apperr" // Typed errors
	"task_wallet/internal/utils"  // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// Context keys set by JWTAuthMiddleware
const (
	UserIDKey = "userID"
	RoleKey   = "role"
)

// JWTAuthMiddleware validates JWT tokens and extracts user information
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			// If not, abort with unauthorized status
			abort(c, http.StatusUnauthorized, apperr.ErrUnauthorized, "Missing or invalid Authorization header")
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string and parse it
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the JWT token
		if err != nil || claims.UserID == 0 {
			// If parsing fails, abort with unauthorized status
			abort(c, http.StatusUnauthorized, apperr.ErrUnauthorized, "Invalid or expired token")
			return
		}
		c.Set(UserIDKey, claims.UserID) // Store userID in context
		c.Set(RoleKey, claims.Role)     // Role is advisory, AdminOnlyMiddleware re-checks it
		c.Next()                        // Proceed to the next handler
	}
}

// UserID returns the authenticated user id, or 0 outside JWTAuthMiddleware
func UserID(c *gin.Context) uint {
	return c.GetUint(UserIDKey)
}

// abort renders err in the same shape as the API handlers. A non-empty
// message replaces the default one of err.
func abort(c *gin.Context, status int, err *apperr.AppError, message string) {
	if message == "" {
		message = err.Message
	}
	body := gin.H{"error": message, "code": err.Code}
	if err.Reason != "" {
		body["reason"] = err.Reason
	}
	c.AbortWithStatusJSON(status, body)
}
