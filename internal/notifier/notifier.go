// Package notifier delivers composed emails. Transport internals live elsewhere.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Notifier interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// LogNotifier only logs. Used in development and when no mailer is wired.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	n.log.Info("email",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("bodyBytes", len(htmlBody)))
	return nil
}

type OutboxMessage struct {
	ID       string    `json:"id"`
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	HTMLBody string    `json:"htmlBody"`
	QueuedAt time.Time `json:"queuedAt"`
}

// RedisOutbox queues messages on a redis list for an external mailer.
type RedisOutbox struct {
	redis *redis.Client
	key   string
}

func NewRedisOutbox(rdb *redis.Client, key string) *RedisOutbox {
	return &RedisOutbox{redis: rdb, key: key}
}

func (o *RedisOutbox) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	if to == "" {
		return fmt.Errorf("recipient required")
	}

	payload, err := json.Marshal(OutboxMessage{
		ID:       uuid.NewString(),
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
		QueuedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	if err := o.redis.LPush(ctx, o.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to queue email: %w", err)
	}
	return nil
}
