package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Supported payout currencies
const (
	CryptoBTC = "BTC"
	CryptoETH = "ETH"
	CryptoXRP = "XRP"
)

// WithdrawalStatus is the explicit state of a withdrawal intent.
type WithdrawalStatus string

const (
	StatusPending    WithdrawalStatus = "pending"    // requested, waiting for the 4 digit PIN
	StatusTaxPaid    WithdrawalStatus = "taxPaid"    // PIN verified, Route decides the next step
	StatusRedirected WithdrawalStatus = "redirected" // handed off to an approved URL, ledger untouched
	StatusCompleted  WithdrawalStatus = "completed"  // service PIN verified, ledger debited
	StatusRejected   WithdrawalStatus = "rejected"
	StatusExpired    WithdrawalStatus = "expired"
)

// Next step after the verify PIN
const (
	RouteConfirm = "confirm"
	RouteService = "service"
)

var transitions = map[WithdrawalStatus][]WithdrawalStatus{
	StatusPending:    {StatusTaxPaid, StatusRejected, StatusExpired},
	StatusTaxPaid:    {StatusRedirected, StatusCompleted, StatusRejected, StatusExpired},
	StatusRedirected: {StatusRedirected},
}

// CanTransition reports whether moving from s to next is legal.
func (s WithdrawalStatus) CanTransition(next WithdrawalStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Active reports whether the intent still awaits verification.
func (s WithdrawalStatus) Active() bool {
	return s == StatusPending || s == StatusTaxPaid
}

// WithdrawalIntent Model
type WithdrawalIntent struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	UserID        uint             `gorm:"index;not null" json:"user_id"`
	Amount        decimal.Decimal  `gorm:"type:decimal(20,2);not null" json:"amount"`
	Crypto        string           `gorm:"size:8;not null" json:"crypto"`
	Address       string           `gorm:"size:255;not null" json:"address"`
	TaxAmount     decimal.Decimal  `gorm:"type:decimal(20,2);not null" json:"tax_amount"`
	ServiceAmount decimal.Decimal  `gorm:"type:decimal(20,2);not null" json:"service_amount"`
	Status        WithdrawalStatus `gorm:"size:16;index;not null;default:pending" json:"status"`
	Route         string           `gorm:"size:16" json:"route,omitempty"`
	RejectReason  string           `gorm:"size:255" json:"reject_reason,omitempty"`
	VerifiedAt    *time.Time       `json:"verified_at,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	CreatedAt     time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"-"`
}
