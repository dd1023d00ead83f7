package api

import (
	"net/http"

	"task_wallet/internal/middleware"

	"github.com/gin-gonic/gin"
)

// MessageRequest is a free text message to the administrators
type MessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// AdminMessageRequest addresses a message to one user
type AdminMessageRequest struct {
	Email string `json:"email" binding:"required,email"`
	Text  string `json:"text" binding:"required"`
}

// ListMessagesHandler returns the caller's inbox
func ListMessagesHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		msgs, err := d.Inbox.ForUser(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	}
}

// SendMessageHandler writes to the administrators
func SendMessageHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MessageRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		msg, err := d.Inbox.SendToAdmins(c.Request.Context(), middleware.UserID(c), req.Text)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": msg})
	}
}

// AdminMessagesHandler returns another user's inbox
func AdminMessagesHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		msgs, err := d.Inbox.ForEmail(c.Request.Context(), c.Param("email"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	}
}

// AdminSendMessageHandler writes to one user
func AdminSendMessageHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdminMessageRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		msg, err := d.Inbox.SendToUser(c.Request.Context(), req.Email, req.Text)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": msg})
	}
}
