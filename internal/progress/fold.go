// Package progress derives per-task status from the event log and guards
// the start/attempt transitions.
package progress

import (
	"time"

	"task_wallet/internal/domain"
)

// Status of a task for one worker.
type Status string

const (
	NotStarted Status = "not-started"
	InProgress Status = "in-progress"
	Completed  Status = "completed"
)

// Progress is what the log says about one (user, task) pair. Each field is
// the latest timestamp seen for that action.
type Progress struct {
	StartedAt   *time.Time `json:"started_at,omitempty"`
	AttemptedAt *time.Time `json:"attempted_at,omitempty"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
}

// Status is a total function of which actions are present.
func (p Progress) Status() Status {
	switch {
	case p.AttemptedAt != nil, p.AcceptedAt != nil:
		return Completed
	case p.StartedAt != nil:
		return InProgress
	}
	return NotStarted
}

// Fold aggregates events into per-task progress for userID. It only looks
// at the user's own started/attempted events and acceptances addressed to
// the user; everything else, including events without a task, is ignored.
// The result does not depend on event order and duplicates collapse.
func Fold(userID uint, events []domain.Event) map[uint]Progress {
	out := make(map[uint]Progress)
	for _, e := range events {
		if e.TaskID == nil {
			continue
		}
		p := out[*e.TaskID]
		switch {
		case e.Kind == domain.KindStarted && from(e, userID):
			p.StartedAt = latest(p.StartedAt, e.CreatedAt)
		case e.Kind == domain.KindAttempted && from(e, userID):
			p.AttemptedAt = latest(p.AttemptedAt, e.CreatedAt)
		case e.Kind == domain.KindTaskAccepted && e.ToUserID == userID:
			p.AcceptedAt = latest(p.AcceptedAt, e.CreatedAt)
		default:
			continue
		}
		out[*e.TaskID] = p
	}
	return out
}

func from(e domain.Event, userID uint) bool {
	return e.FromUserID != nil && *e.FromUserID == userID
}

func latest(cur *time.Time, ts time.Time) *time.Time {
	if cur != nil && !ts.After(*cur) {
		return cur
	}
	return &ts
}
