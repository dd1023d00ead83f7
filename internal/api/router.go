package api

import (
	"net/http" // HTTP status codes
	"time"     // Token lifetime

	"task_wallet/internal/catalog"    // Task catalog
	"task_wallet/internal/inbox"      // Messages
	"task_wallet/internal/ledger"     // Wallet balances
	"task_wallet/internal/middleware" // Auth and admin guards
	"task_wallet/internal/notify"     // Best effort notifications
	"task_wallet/internal/progress"   // Task progress
	"task_wallet/internal/review"     // Admin review
	"task_wallet/internal/store"      // Persistence contracts
	"task_wallet/internal/utils"      // Redis cache
	"task_wallet/internal/withdraw"   // Withdrawal flow

	"github.com/gin-gonic/gin" // Gin web framework
)

// Deps carries everything the handlers need
type Deps struct {
	Store     store.Store
	Cache     *utils.Cache
	Fanout    *notify.Fanout
	Catalog   *catalog.Service
	Progress  *progress.Engine
	Ledger    *ledger.Service
	Withdraw  *withdraw.Service
	Review    *review.Service
	Inbox     *inbox.Service
	JWTSecret string        // JWT secret key
	JWTTTL    time.Duration // Token lifetime
}

// Register mounts every route on r
func Register(r gin.IRouter, d *Deps) {
	// Public routes
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.POST("/auth/register", RegisterHandler(d)) // Registration endpoint
	r.POST("/auth/login", LoginHandler(d))       // Login endpoint

	// Authenticated routes
	authed := r.Group("")
	authed.Use(middleware.JWTAuthMiddleware(d.JWTSecret))
	authed.GET("/user/me", MeHandler(d))

	authed.GET("/tasks", ListTasksHandler(d))
	authed.GET("/tasks/history", TaskHistoryHandler(d))
	authed.POST("/tasks/:id/start", StartTaskHandler(d))
	authed.POST("/tasks/:id/attempt", AttemptTaskHandler(d))

	authed.GET("/wallet", GetWalletHandler(d))                          // Balance endpoint
	authed.GET("/wallet/transactions", GetTransactionHistoryHandler(d)) // Ledger history endpoint

	authed.POST("/withdraw", RequestWithdrawHandler(d))
	authed.GET("/withdraw/verify", VerifyDetailsHandler(d))
	authed.POST("/withdraw/verify", VerifyHandler(d))
	authed.GET("/withdraw/confirm", ConfirmHandler(d))
	authed.GET("/withdraw/service", ServiceDetailsHandler(d))
	authed.POST("/withdraw/service", ServiceHandler(d))

	authed.GET("/messages", ListMessagesHandler(d))
	authed.POST("/messages", SendMessageHandler(d))

	// Admin routes (protected, admin only)
	admin := r.Group("/admin")
	admin.Use(middleware.JWTAuthMiddleware(d.JWTSecret), middleware.AdminOnlyMiddleware(d.Store.Users()))
	admin.GET("/tasks/completed", ListPendingHandler(d))
	admin.POST("/tasks/:id/accept", AcceptAttemptHandler(d))
	admin.POST("/tasks/:id/reject", RejectAttemptHandler(d))
	admin.GET("/tasks", AdminListTasksHandler(d))
	admin.POST("/tasks", CreateTaskHandler(d))
	admin.GET("/tasks/:id", GetTaskHandler(d))
	admin.PUT("/tasks/:id", UpdateTaskHandler(d))
	admin.DELETE("/tasks/:id", DeleteTaskHandler(d))

	admin.GET("/users", ListUsersHandler(d)) // List users endpoint
	admin.GET("/users/:id", GetUserHandler(d))
	admin.DELETE("/users/:id", DeleteUserHandler(d))

	admin.GET("/messages/:email", AdminMessagesHandler(d))
	admin.POST("/messages", AdminSendMessageHandler(d))

	admin.GET("/withdraw/urls/:email", GetWithdrawURLsHandler(d))
	admin.POST("/withdraw/urls/:email", SetWithdrawURLsHandler(d))
	admin.POST("/withdraw/pins", ActivatePinsHandler(d))
	admin.POST("/withdrawals/:id/reject", RejectWithdrawalHandler(d))
}
