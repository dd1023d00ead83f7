package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const consumerGroup = "task_wallet_mailers"

// Worker reads the notification stream with a consumer group and mails each
// entry. Entries are acknowledged even when sending fails: delivery is best
// effort and a poison message must not block the stream.
type Worker struct {
	rdb      *redis.Client
	stream   string
	consumer string
	mailer   Mailer
}

// NewWorker returns a worker named consumer.
func NewWorker(rdb *redis.Client, stream, consumer string, mailer Mailer) *Worker {
	return &Worker{rdb: rdb, stream: stream, consumer: consumer, mailer: mailer}
}

// Start consumes until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	err := w.rdb.XGroupCreateMkStream(ctx, w.stream, consumerGroup, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		logrus.WithError(err).Error("Failed to create notification consumer group")
	}

	logrus.WithField("stream", w.stream).Info("Notification worker started")
	for {
		select {
		case <-ctx.Done():
			logrus.Info("Notification worker stopped")
			return
		default:
		}

		entries, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: w.consumer,
			Streams:  []string{w.stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				logrus.WithError(err).Warn("Failed to read notification stream")
				time.Sleep(time.Second)
			}
			continue
		}

		for _, stream := range entries {
			for _, msg := range stream.Messages {
				w.handle(ctx, msg)
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg redis.XMessage) {
	defer w.rdb.XAck(ctx, w.stream, consumerGroup, msg.ID)

	n, ok := fromValues(msg.Values)
	if !ok {
		logrus.WithField("id", msg.ID).Warn("Dropping malformed notification")
		return
	}
	if err := w.mailer.Send(ctx, n); err != nil {
		logrus.WithFields(logrus.Fields{
			"id":      msg.ID,
			"to":      n.To,
			"subject": n.Subject,
			"error":   err.Error(),
		}).Warn("Failed to send notification")
	}
}
