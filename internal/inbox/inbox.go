// Package inbox exposes the event log as per-user message lists.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"task_wallet/internal/apperr"
	"task_wallet/internal/domain"
	"task_wallet/internal/notify"
	"task_wallet/internal/store"
)

// Sender identifies the author of a message. It is nil for system and admin
// messages.
type Sender struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Message is one inbox entry.
type Message struct {
	ID        uint             `json:"id"`
	Kind      domain.EventKind `json:"kind"`
	Text      string           `json:"text"`
	From      *Sender          `json:"from,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Service reads and writes inbox messages.
type Service struct {
	store  store.Store
	fanout *notify.Fanout
}

// New wires an inbox.
func New(st store.Store, fanout *notify.Fanout) *Service {
	return &Service{store: st, fanout: fanout}
}

// ForUser lists everything addressed to userID, newest first. The user's
// own progress records are not messages and are left out.
func (s *Service) ForUser(ctx context.Context, userID uint) ([]Message, error) {
	events, err := s.store.Events().ListToUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("list messages", err)
	}
	senders := map[uint]*Sender{}
	out := make([]Message, 0, len(events))
	for i := range events {
		ev := &events[i]
		if ev.Kind == domain.KindStarted || ev.Kind == domain.KindAttempted {
			continue
		}
		out = append(out, Message{
			ID:        ev.ID,
			Kind:      ev.Kind,
			Text:      ev.Tag(),
			From:      s.sender(ctx, ev.FromUserID, senders),
			CreatedAt: ev.CreatedAt,
		})
	}
	return out, nil
}

// ForEmail is the admin view of another user's inbox.
func (s *Service) ForEmail(ctx context.Context, email string) ([]Message, error) {
	u, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.ForUser(ctx, u.ID)
}

// SendToAdmins posts text from userID to every administrator and e-mails
// them.
func (s *Service) SendToAdmins(ctx context.Context, userID uint, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.InvalidInput("text", "Message text is required")
	}
	sender, err := s.store.Users().Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	} else if err != nil {
		return nil, apperr.Internal("load sender", err)
	}

	notice := &domain.Event{FromUserID: domain.UintPtr(sender.ID), Kind: domain.KindMessage, Body: text}
	name := sender.FullName()
	s.fanout.Admins(ctx, notice, "New message from "+name,
		fmt.Sprintf("You have received a new message from %s (%s):\n\n%q", name, sender.Email, text))

	logrus.WithFields(logrus.Fields{"user_id": sender.ID}).Info("Message sent to admins")
	return &Message{
		Kind:      domain.KindMessage,
		Text:      text,
		From:      toSender(sender),
		CreatedAt: time.Now(),
	}, nil
}

// SendToUser posts an admin message to the user behind email.
func (s *Service) SendToUser(ctx context.Context, email, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.InvalidInput("text", "Message text is required")
	}
	u, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	ev := &domain.Event{ToUserID: u.ID, Kind: domain.KindMessage, Body: text}
	if err := s.store.Events().Append(ctx, ev); err != nil {
		return nil, apperr.Internal("append message", err)
	}

	logrus.WithFields(logrus.Fields{"user_id": u.ID, "message_id": ev.ID}).Info("Admin message sent")
	s.fanout.User(ctx, u, "Message from Admin", text)
	return &Message{ID: ev.ID, Kind: ev.Kind, Text: ev.Tag(), CreatedAt: ev.CreatedAt}, nil
}

func (s *Service) userByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperr.InvalidInput("email", "Email is required")
	}
	u, err := s.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	} else if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	return u, nil
}

// sender resolves and memoizes message authors. Deleted authors render as
// nil like system messages.
func (s *Service) sender(ctx context.Context, id *uint, seen map[uint]*Sender) *Sender {
	if id == nil {
		return nil
	}
	if snd, ok := seen[*id]; ok {
		return snd
	}
	u, err := s.store.Users().Get(ctx, *id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logrus.WithError(err).WithField("user_id", *id).Warn("Failed to resolve message sender")
		}
		seen[*id] = nil
		return nil
	}
	snd := toSender(u)
	seen[*id] = snd
	return snd
}

func toSender(u *domain.User) *Sender {
	return &Sender{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}
