package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"task_wallet/internal/apperr"     // Typed errors
	"task_wallet/internal/domain"     // Importing domain models
	"task_wallet/internal/middleware" // Request scoped logging
	"task_wallet/internal/store"      // Persistence contracts

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// ListUsersHandler returns users page by page, cached for a minute
func ListUsersHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize := pagination(c)
		// Create a cache key based on pagination parameters
		cacheKey := adminUsersPrefix + "page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached struct {
			Users      []domain.User `json:"users"`       // List of users
			Page       int           `json:"page"`        // Current page
			PageSize   int           `json:"page_size"`   // Page size
			Total      int64         `json:"total"`       // Total number of users
			TotalPages int           `json:"total_pages"` // Total pages
		}
		// If cached data found, return it
		if found, err := d.Cache.Get(ctx, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"users":       cached.Users,      // List of users
				"page":        cached.Page,       // Current page
				"page_size":   cached.PageSize,   // Page size
				"total":       cached.Total,      // Total number of users
				"total_pages": cached.TotalPages, // Total pages
				"cached":      true,              // Indicate response is from cache
			})
			return
		}
		users, total, err := d.Store.Users().List(ctx, (page-1)*pageSize, pageSize)
		if err != nil {
			respondError(c, apperr.Internal("list users", err))
			return
		}
		// Prepare final response data
		respData := gin.H{
			"users":       users,                       // List of users
			"page":        page,                        // Current page
			"page_size":   pageSize,                    // Page size
			"total":       total,                       // Total number of users
			"total_pages": totalPages(total, pageSize), // Total pages
			"cached":      false,                       // Indicate response is not from cache
		}
		// Cache the response for future requests
		_ = d.Cache.Set(ctx, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData) // Return the response
	}
}

// GetUserHandler returns one user
func GetUserHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		user, err := d.Store.Users().Get(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(c, apperr.ErrUserNotFound)
				return
			}
			respondError(c, apperr.Internal("load user", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// DeleteUserHandler soft deletes a user. Their pending attempts drop out of
// the review queue.
func DeleteUserHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		if id == middleware.UserID(c) {
			respondError(c, apperr.InvalidInput("id", "Cannot delete yourself"))
			return
		}
		if err := d.Store.Users().Delete(c.Request.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(c, apperr.ErrUserNotFound)
				return
			}
			respondError(c, apperr.Internal("delete user", err))
			return
		}
		logrus.WithField("user_id", id).Info("User deleted")
		invalidateBalance(c, d, id)
		c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
	}
}
