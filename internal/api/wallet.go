package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"task_wallet/internal/domain"     // Importing domain models
	"task_wallet/internal/middleware" // Authenticated principal

	"github.com/gin-gonic/gin" // Gin web framework
)

// GetWalletHandler returns the authenticated user's balance and withdrawal gates
func GetWalletHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c) // Get userID from context
		// Balance is read straight from the database, it changes under review and withdrawal
		balance, err := d.Ledger.Balance(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		rules := d.Ledger.Rules()
		c.JSON(http.StatusOK, gin.H{
			"balance":              balance,
			"min_withdraw_balance": rules.MinBalance,
			"min_account_age_days": int(rules.MinAccountAge.Hours() / 24),
		})
	}
}

// GetTransactionHistoryHandler returns the authenticated user's ledger entries
func GetTransactionHistoryHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := middleware.UserID(c) // Get userID from context
		page, pageSize := pagination(c)
		// Redis cache key
		cacheKey := txHistoryPrefix(userID) + ":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
		var cached struct {
			Transactions []domain.LedgerEntry `json:"transactions"` // List of entries
			Page         int                  `json:"page"`         // Current page
			PageSize     int                  `json:"page_size"`    // Page size
			Total        int64                `json:"total"`        // Total entries
			TotalPages   int                  `json:"total_pages"`  // Total pages
		}
		// Try to get from cache
		if found, err := d.Cache.Get(ctx, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached.Transactions, // Cached entries
				"page":         cached.Page,         // Current page
				"page_size":    cached.PageSize,     // Page size
				"total":        cached.Total,        // Total entries
				"total_pages":  cached.TotalPages,   // Total pages
				"cached":       true,
			})
			return
		}
		entries, total, err := d.Ledger.Entries(ctx, userID, page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := gin.H{
			"transactions": entries,                     // List of entries
			"page":         page,                        // Current page
			"page_size":    pageSize,                    // Page size
			"total":        total,                       // Total entries
			"total_pages":  totalPages(total, pageSize), // Total pages
			"cached":       false,                       // Not from cache
		}
		// Cache the result for 60 seconds
		_ = d.Cache.Set(ctx, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp) // Return ledger history
	}
}
