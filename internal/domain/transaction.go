package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Exact money arithmetic
)

// Ledger entry types
const (
	EntryCredit = "credit" // Task acceptance
	EntryDebit  = "debit"  // Withdrawal completion
)

// LedgerEntry Model, one row per balance movement
type LedgerEntry struct {
	ID           uint            `gorm:"primaryKey" json:"id"`                             // Primary key
	UserID       uint            `gorm:"index;not null" json:"user_id"`                    // Owner of the balance
	Type         string          `gorm:"size:16;not null" json:"type"`                     // credit or debit
	Amount       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`        // Always positive
	BalanceAfter decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"balance_after"` // Balance once applied
	Reference    string          `gorm:"size:64" json:"reference"`                         // What caused it, e.g. attempt:12
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`                          // Timestamp of creation
}
