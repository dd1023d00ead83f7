package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Exact money arithmetic
	"gorm.io/gorm"                  // GORM ORM library
)

// Profile types a user can register with
const (
	ProfileWorker   = "worker"   // Completes tasks and earns
	ProfileCustomer = "customer" // Publishes work
)

// Roles carried by the principal
const (
	RoleUser  = "user"  // Ordinary authenticated identity
	RoleAdmin = "admin" // Administrator
)

// User Model
type User struct {
	ID            uint            `gorm:"primaryKey" json:"id"`                                        // Primary key
	ProfileType   string          `gorm:"size:16;not null" json:"profile_type"`                        // worker or customer
	Role          string          `gorm:"size:16;default:user;index" json:"role"`                      // Role: user or admin
	FirstName     string          `gorm:"size:64;not null" json:"first_name"`                          // First name
	LastName      string          `gorm:"size:64;not null" json:"last_name"`                           // Last name
	Email         string          `gorm:"size:255;uniqueIndex;not null" json:"email"`                  // Unique, lowercased e-mail
	Phone         string          `gorm:"size:32" json:"phone"`                                        // Phone number
	Country       string          `gorm:"size:64" json:"country"`                                      // Country
	Password      string          `gorm:"not null" json:"-"`                                           // Hashed password
	WalletBalance decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"wallet_balance"` // Ledger balance, never negative
	LastLogin     *time.Time      `json:"last_login,omitempty"`                                        // Last successful login
	CreatedAt     time.Time       `json:"created_at"`                                                  // Registration time, drives withdrawal age gate
	UpdatedAt     time.Time       `json:"updated_at"`                                                  // Last update
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`                                              // Soft delete
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// FullName joins first and last name
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
