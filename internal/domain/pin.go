package domain

import "time"

// MaxWithdrawURLs is the number of URL slots an admin can fill per user.
const MaxWithdrawURLs = 5

// PinRecord Model, created lazily the first time an admin configures a user.
type PinRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	VerifyPin    string    `gorm:"size:4" json:"-"`
	ServicePin   string    `gorm:"size:5" json:"-"`
	WithdrawURLs []string  `gorm:"serializer:json;type:text" json:"withdraw_urls"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasURLs reports whether at least one withdraw URL is configured.
func (p *PinRecord) HasURLs() bool {
	return p != nil && len(p.WithdrawURLs) > 0
}
