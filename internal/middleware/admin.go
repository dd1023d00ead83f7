package middleware

import (
	"errors"                      // Error inspection
	"net/http"                    // HTTP status codes
	"task_wallet/internal/apperr" // Typed errors
	"task_wallet/internal/store"  // Persistence contracts

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
)

// AdminOnlyMiddleware checks the user's role from the database on each request
func AdminOnlyMiddleware(users store.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c) // Get userID from context
		// Check if userID exists in context
		if userID == 0 {
			// If not, abort with unauthorized status
			abort(c, http.StatusUnauthorized, apperr.ErrUnauthorized, "")
			return
		}
		user, err := users.Get(c.Request.Context(), userID) // Fetch user from database
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				logrus.WithError(err).WithField("user_id", userID).Error("Failed to load user for admin check")
				abort(c, http.StatusInternalServerError, apperr.Internal("admin check", err), "")
				return
			}
			// If user not found, abort with forbidden status
			abort(c, http.StatusForbidden, apperr.ErrForbidden, "")
			return
		}
		// Check if user role is admin
		if !user.IsAdmin() {
			// If not admin, abort with forbidden status
			abort(c, http.StatusForbidden, apperr.ErrForbidden, "")
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}
