package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Exact money arithmetic
	"gorm.io/gorm"                  // GORM ORM library
)

// Task Model
type Task struct {
	ID          uint            `gorm:"primaryKey" json:"id"`                     // Primary key
	Name        string          `gorm:"size:255;not null" json:"name"`            // Display name
	Slug        string          `gorm:"size:255;index" json:"slug"`               // URL friendly name
	Description string          `gorm:"type:text;not null" json:"description"`    // What the worker has to do
	Price       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price"` // Reward credited on acceptance
	URL         string          `gorm:"size:1024;not null" json:"url"`            // External task URL
	CreatedAt   time.Time       `json:"created_at"`                               // Creation time
	UpdatedAt   time.Time       `json:"updated_at"`                               // Last update
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`                           // Soft delete
}
