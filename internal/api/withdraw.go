package api

import (
	"net/http"

	"task_wallet/internal/middleware"
	"task_wallet/internal/withdraw"

	"github.com/gin-gonic/gin"
)

// PinRequest carries a 4 or 5 digit PIN
type PinRequest struct {
	Pin string `json:"pin" binding:"required,number"` // Length depends on the step
}

// RequestWithdrawHandler opens a withdrawal intent
func RequestWithdrawHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in withdraw.RequestInput
		if err := bindJSON(c, &in); err != nil {
			respondError(c, err)
			return
		}
		intent, err := d.Withdraw.Request(c.Request.Context(), middleware.UserID(c), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Withdrawal requested", "withdrawal": intent})
	}
}

// VerifyDetailsHandler shows the latest intent before the PIN step
func VerifyDetailsHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := d.Withdraw.VerifyDetails(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// VerifyHandler checks the 4 digit PIN and answers with the next step
func VerifyHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PinRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		next, err := d.Withdraw.Verify(c.Request.Context(), middleware.UserID(c), req.Pin)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"next": next})
	}
}

// ConfirmHandler returns the approved URL to redirect to
func ConfirmHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		url, err := d.Withdraw.Confirm(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}

// ServiceDetailsHandler shows the service charge before the last step
func ServiceDetailsHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := d.Withdraw.ServiceDetails(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// ServiceHandler checks the 5 digit PIN and completes the withdrawal
func ServiceHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PinRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		userID := middleware.UserID(c)
		done, err := d.Withdraw.Service(c.Request.Context(), userID, req.Pin)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateBalance(c, d, userID)
		c.JSON(http.StatusOK, gin.H{"success": true, "withdrawal": done})
	}
}

// RejectWithdrawalRequest is the admin's optional note
type RejectWithdrawalRequest struct {
	Reason string `json:"reason"`
}

// RejectWithdrawalHandler closes an active intent without paying out
func RejectWithdrawalHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		var req RejectWithdrawalRequest
		if c.Request.ContentLength != 0 {
			if err := bindJSON(c, &req); err != nil {
				respondError(c, err)
				return
			}
		}
		w, err := d.Withdraw.Reject(c.Request.Context(), id, req.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Withdrawal rejected", "withdrawal": w})
	}
}

// URLsRequest carries the withdraw URL list
type URLsRequest struct {
	URLs []string `json:"urls"`
}

// GetWithdrawURLsHandler returns the five URL slots of a user
func GetWithdrawURLsHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		urls, err := d.Withdraw.URLs(c.Request.Context(), c.Param("email"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"urls": urls})
	}
}

// SetWithdrawURLsHandler replaces the URLs of a user
func SetWithdrawURLsHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req URLsRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		urls, err := d.Withdraw.SetURLs(c.Request.Context(), c.Param("email"), req.URLs)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "URLs saved", "urls": urls})
	}
}

// ActivatePinsHandler sets the verify and/or service PIN of a user
func ActivatePinsHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in withdraw.PinsInput
		if err := bindJSON(c, &in); err != nil {
			respondError(c, err)
			return
		}
		updates, err := d.Withdraw.SetPins(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "PINs activated", "details": updates})
	}
}
