package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EventKind is the closed set of things the event log records.
type EventKind string

const (
	// Progress ledger, written by the worker about themselves.
	KindStarted   EventKind = "started"
	KindAttempted EventKind = "attempted"

	// Notices delivered to administrators.
	KindTaskStartedNotice   EventKind = "start"
	KindTaskAttemptedNotice EventKind = "attempt"

	// Review outcomes delivered to the worker.
	KindTaskAccepted EventKind = "taskAccepted"
	KindTaskRejected EventKind = "taskRejected"

	// Withdrawal lifecycle delivered to the worker.
	KindWithdrawRequested EventKind = "withdrawRequested"
	KindWithdrawCompleted EventKind = "withdrawCompleted"
	KindWithdrawRejected  EventKind = "withdrawRejected"
	KindWithdrawExpired   EventKind = "withdrawExpired"

	KindPinsActivated EventKind = "pinsActivated"
	KindMessage       EventKind = "message"
)

var knownKinds = map[EventKind]struct{}{
	KindStarted: {}, KindAttempted: {},
	KindTaskStartedNotice: {}, KindTaskAttemptedNotice: {},
	KindTaskAccepted: {}, KindTaskRejected: {},
	KindWithdrawRequested: {}, KindWithdrawCompleted: {}, KindWithdrawRejected: {}, KindWithdrawExpired: {},
	KindPinsActivated: {}, KindMessage: {},
}

// Valid reports whether k is one of the declared kinds.
func (k EventKind) Valid() bool {
	_, ok := knownKinds[k]
	return ok
}

// Event is an append-only record directed from one actor to another.
// FromUserID is nil for system and admin originated events.
type Event struct {
	ID         uint                `gorm:"primaryKey" json:"id"`
	FromUserID *uint               `gorm:"index" json:"from_user_id"`
	ToUserID   uint                `gorm:"index;not null" json:"to_user_id"`
	Kind       EventKind           `gorm:"size:32;index;not null" json:"kind"`
	TaskID     *uint               `gorm:"index" json:"task_id,omitempty"`
	TaskName   string              `gorm:"size:255" json:"task_name,omitempty"`
	Amount     decimal.NullDecimal `gorm:"type:decimal(20,2)" json:"amount,omitempty"`
	Body       string              `gorm:"type:text" json:"body,omitempty"`
	CreatedAt  time.Time           `gorm:"index" json:"created_at"`
	DeletedAt  gorm.DeletedAt      `gorm:"index" json:"-"`
}

// Tag renders the event in the colon-delimited form shown in inboxes,
// e.g. "started:12" or "taskAccepted:Survey:50".
func (e *Event) Tag() string {
	parts := []string{string(e.Kind)}
	switch e.Kind {
	case KindStarted, KindAttempted:
		if e.TaskID != nil {
			parts = append(parts, strconv.FormatUint(uint64(*e.TaskID), 10))
		}
	case KindTaskStartedNotice, KindTaskAttemptedNotice:
		parts = append(parts, e.Body, e.TaskName, e.amountString())
	case KindTaskAccepted:
		parts = append(parts, e.TaskName, e.amountString())
	case KindTaskRejected:
		parts = append(parts, e.TaskName)
	case KindWithdrawRequested, KindWithdrawCompleted, KindWithdrawRejected, KindWithdrawExpired:
		parts = append(parts, e.amountString())
	case KindPinsActivated:
		parts = append(parts, e.Body)
	case KindMessage:
		return e.Body
	}
	return strings.Join(parts, ":")
}

func (e *Event) amountString() string {
	if !e.Amount.Valid {
		return ""
	}
	return e.Amount.Decimal.String()
}

// UintPtr is a small helper for optional foreign keys.
func UintPtr(v uint) *uint { return &v }

// Money wraps an amount for the nullable Amount column.
func Money(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// ParseTag splits a colon-delimited tag into its kind and payload fields.
// Tags with fewer than two fields, or an unknown kind, are reported as
// malformed.
func ParseTag(tag string) (EventKind, []string, bool) {
	parts := strings.Split(tag, ":")
	if len(parts) < 2 {
		return "", nil, false
	}
	kind := EventKind(parts[0])
	if !kind.Valid() {
		return "", nil, false
	}
	return kind, parts[1:], true
}
