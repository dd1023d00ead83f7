package api

import (
	"errors"   // Error inspection
	"fmt"      // Message formatting
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Time durations

	"task_wallet/internal/apperr"     // Typed errors
	"task_wallet/internal/domain"     // Importing domain models
	"task_wallet/internal/middleware" // Authenticated principal
	"task_wallet/internal/store"      // Persistence contracts
	"task_wallet/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
)

// Request struct for registration
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`                         // Login e-mail, stored lowercased
	Password    string `json:"password" binding:"required,min=8,max=64"`               // 8-64 characters
	ProfileType string `json:"profile_type" binding:"omitempty,oneof=worker customer"` // worker (default) or customer
	FirstName   string `json:"first_name" binding:"required"`                          // First name
	LastName    string `json:"last_name" binding:"required"`                           // Last name
	Phone       string `json:"phone"`                                                  // Phone number
	Country     string `json:"country"`                                                // Country
}

// Request struct for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // E-mail must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Response struct for authentication
type AuthResponse struct {
	Token string `json:"token"` // JWT token
	Role  string `json:"role"`  // Principal role
}

// normalize lowercases the e-mail and applies the default profile
func (req *RegisterRequest) normalize() {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.ProfileType == "" {
		req.ProfileType = domain.ProfileWorker // Workers are the default audience
	}
}

// RegisterHandler creates a user account
func RegisterHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var req RegisterRequest // Bind JSON request to struct
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		req.normalize()
		// Reject duplicates up front, the unique index catches races
		if _, err := d.Store.Users().GetByEmail(ctx, req.Email); err == nil {
			respondError(c, apperr.ErrEmailTaken)
			return
		} else if !errors.Is(err, store.ErrNotFound) {
			respondError(c, apperr.Internal("lookup email", err))
			return
		}
		// Hash the password and create the user
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			respondError(c, apperr.InvalidInput("password", "password must be at most 72 bytes")) // Multi-byte runes
			return
		} else if err != nil {
			respondError(c, apperr.Internal("hash password", err))
			return
		}
		user := domain.User{
			ProfileType: req.ProfileType,
			Role:        domain.RoleUser, // Admins are promoted out of band
			FirstName:   strings.TrimSpace(req.FirstName),
			LastName:    strings.TrimSpace(req.LastName),
			Email:       req.Email,
			Phone:       strings.TrimSpace(req.Phone),
			Country:     strings.TrimSpace(req.Country),
			Password:    string(hash),
		}
		// Attempt to create the user in the database
		if err := d.Store.Users().Create(ctx, &user); err != nil {
			if errors.Is(err, store.ErrConditionFailed) {
				respondError(c, apperr.ErrEmailTaken)
				return
			}
			respondError(c, apperr.Internal("create user", err))
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,          // User ID
			"profile": user.ProfileType, // Profile type
		}).Info("User registered")
		_ = d.Cache.DeletePrefix(ctx, adminUsersPrefix) // New row shifts every cached page
		d.Fanout.Admins(ctx, nil, "New User Registered", fmt.Sprintf(
			"New user registration:\nName: %s\nEmail: %s\nProfile: %s\nPhone: %s\nCountry: %s",
			user.FullName(), user.Email, user.ProfileType, user.Phone, user.Country))
		// Return success response
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "id": user.ID})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var req LoginRequest // Bind JSON request to struct
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
		user, err := d.Store.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(c, apperr.ErrInvalidCredentials) // Same answer as a bad password
				return
			}
			respondError(c, apperr.Internal("lookup user", err))
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			respondError(c, apperr.ErrInvalidCredentials)
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.ID, user.Role, d.JWTSecret, d.JWTTTL)
		if err != nil {
			respondError(c, apperr.Internal("generate token", err))
			return
		}
		if err := d.Store.Users().TouchLogin(ctx, user.ID, time.Now()); err != nil {
			logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to record last login")
		}
		_ = d.Cache.Delete(ctx, profileKey(user.ID))
		if !user.IsAdmin() {
			d.Fanout.Admins(ctx, nil, "User Logged In", fmt.Sprintf(
				"User login:\nName: %s\nEmail: %s\nWallet Balance: $%s",
				user.FullName(), user.Email, user.WalletBalance.StringFixed(2)))
		}
		// Return the token in the response
		c.JSON(http.StatusOK, AuthResponse{Token: token, Role: user.Role})
	}
}

// MeHandler returns the authenticated user's profile
func MeHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := middleware.UserID(c) // Get userID from context
		cacheKey := profileKey(userID) // Cache key for the profile
		var user domain.User
		if found, err := d.Cache.Get(ctx, cacheKey, &user); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"user": user, "cached": true}) // Return cached profile
			return
		}
		u, err := d.Store.Users().Get(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(c, apperr.ErrUserNotFound)
				return
			}
			respondError(c, apperr.Internal("load user", err))
			return
		}
		_ = d.Cache.Set(ctx, cacheKey, u, 60*time.Second) // Cache the profile for 60 seconds
		c.JSON(http.StatusOK, gin.H{"user": u, "cached": false})
	}
}

// Cache keys
const adminUsersPrefix = "admin:users:"

func profileKey(userID uint) string {
	return "user:profile:" + strconv.FormatUint(uint64(userID), 10)
}

func txHistoryPrefix(userID uint) string {
	return "txhistory:user:" + strconv.FormatUint(uint64(userID), 10)
}

// invalidateBalance drops every cached view that carries the user's balance
func invalidateBalance(c *gin.Context, d *Deps, userID uint) {
	ctx := c.Request.Context()
	if err := d.Cache.Delete(ctx, profileKey(userID)); err != nil {
		middleware.Log(c).WithError(err).Warn("Failed to invalidate profile cache")
	}
	for _, prefix := range []string{txHistoryPrefix(userID), adminUsersPrefix} {
		if err := d.Cache.DeletePrefix(ctx, prefix); err != nil {
			middleware.Log(c).WithError(err).Warn("Failed to invalidate cache")
		}
	}
}
