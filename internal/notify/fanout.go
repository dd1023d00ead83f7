package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"task_wallet/internal/domain"
	"task_wallet/internal/store"
)

// Fanout addresses administrators: an in-app notice per admin plus an
// e-mail. Everything it does is best effort and only logged on failure.
type Fanout struct {
	store    store.Store
	notifier Notifier
}

// NewFanout returns a fanout over st and n.
func NewFanout(st store.Store, n Notifier) *Fanout {
	return &Fanout{store: st, notifier: n}
}

// Admins appends a copy of notice addressed to each admin (when notice is
// non-nil) and e-mails them.
func (f *Fanout) Admins(ctx context.Context, notice *domain.Event, subject, body string) {
	admins, err := f.store.Users().ListAdmins(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Failed to list admins for notification")
		return
	}
	for _, admin := range admins {
		if notice != nil {
			e := *notice
			e.ID = 0
			e.ToUserID = admin.ID
			if err := f.store.Events().Append(ctx, &e); err != nil {
				logrus.WithFields(logrus.Fields{
					"admin_id": admin.ID,
					"kind":     e.Kind,
					"error":    err.Error(),
				}).Warn("Failed to append admin notice")
			}
		}
		f.notifier.Notify(ctx, Notification{To: admin.Email, Subject: subject, Body: body})
	}
}

// User e-mails a single user.
func (f *Fanout) User(ctx context.Context, u *domain.User, subject, body string) {
	if u == nil {
		return
	}
	f.notifier.Notify(ctx, Notification{To: u.Email, Subject: subject, Body: body})
}
