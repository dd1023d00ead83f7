package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListPendingHandler returns the attempts waiting for review
func ListPendingHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		pending, err := d.Review.ListPending(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"attempts": pending})
	}
}

// AcceptAttemptHandler credits the worker for an attempt. The :id is the
// attempt id from the review queue.
func AcceptAttemptHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		out, err := d.Review.Accept(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateBalance(c, d, out.UserID)
		c.JSON(http.StatusOK, gin.H{"message": "Task accepted", "result": out})
	}
}

// RejectAttemptHandler drops an attempt without paying
func RejectAttemptHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		out, err := d.Review.Reject(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Task rejected", "result": out})
	}
}
