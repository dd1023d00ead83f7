// Package notify delivers best-effort notifications. Producers push to a
// Redis stream without waiting; a Worker drains the stream into a Mailer.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Notification is one outbound message.
type Notification struct {
	To      string
	Subject string
	Body    string
}

// Notifier dispatches a notification. Implementations must not block the
// caller and must swallow their own failures.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// StreamNotifier publishes notifications to a Redis stream.
type StreamNotifier struct {
	rdb     *redis.Client
	stream  string
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewStreamNotifier returns a notifier writing to stream.
func NewStreamNotifier(rdb *redis.Client, stream string) *StreamNotifier {
	return &StreamNotifier{rdb: rdb, stream: stream, timeout: 3 * time.Second}
}

// Notify enqueues n in the background. The request context is only used for
// its values; a cancelled request does not drop the notification.
func (s *StreamNotifier) Notify(ctx context.Context, n Notification) {
	if n.To == "" {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		err := s.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			Values: toValues(n),
		}).Err()
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"to":      n.To,
				"subject": n.Subject,
				"error":   err.Error(),
			}).Warn("Failed to enqueue notification")
		}
	}()
}

// Wait blocks until in-flight publishes finish; used on shutdown.
func (s *StreamNotifier) Wait() {
	s.wg.Wait()
}

func toValues(n Notification) map[string]any {
	return map[string]any{"to": n.To, "subject": n.Subject, "body": n.Body}
}

func fromValues(values map[string]any) (Notification, bool) {
	to, ok := values["to"].(string)
	if !ok || to == "" {
		return Notification{}, false
	}
	subject, _ := values["subject"].(string)
	body, _ := values["body"].(string)
	return Notification{To: to, Subject: subject, Body: body}, true
}

// Discard is a Notifier that drops everything.
type Discard struct{}

func (Discard) Notify(context.Context, Notification) {}
