package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"rural_skills_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ChangeOp kind of write that touched the messages collection
type ChangeOp string

const (
	// ChangeCreated new message stored
	ChangeCreated ChangeOp = "created"
	// ChangeRead read flag set
	ChangeRead ChangeOp = "read"
	// ChangeDeleted message retracted by its sender
	ChangeDeleted ChangeOp = "deleted"
)

// ChangeEvent 寫入 messages 後廣播的通知, 訂閱者收到後重新讀取整個 log
type ChangeEvent struct {
	Op              ChangeOp `json:"op"`
	MessageID       string   `json:"message_id"`
	ConversationKey string   `json:"conversation_key,omitempty"`
}

// ChangePublisher announce a write to the message log
type ChangePublisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// ChangeFeed publish and subscribe to message log changes
type ChangeFeed interface {
	ChangePublisher
	// Subscribe 呼叫 handler 直到 ctx 取消
	Subscribe(ctx context.Context, handler func(ev ChangeEvent)) error
}

// RedisChangeFeed definition redis pub/sub change feed
type RedisChangeFeed struct {
	client  *redis.Client
	channel string
}

// NewRedisChangeFeed create RedisChangeFeed on channel
func NewRedisChangeFeed(client *redis.Client, channel string) *RedisChangeFeed {
	return &RedisChangeFeed{
		client:  client,
		channel: channel,
	}
}

// Publish 將 event 序列化後，發布到 channel
func (r *RedisChangeFeed) Publish(ctx context.Context, ev ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Subscribe waits for the subscription to be confirmed, then delivers events on a goroutine
func (r *RedisChangeFeed) Subscribe(ctx context.Context, handler func(ev ChangeEvent)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}

				var ev ChangeEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					logger.Log.Error("change feed decode failed", zap.String("channel", r.channel), zap.Error(err))
					continue
				}
				handler(ev)
			case <-ctx.Done():
				logger.Log.Debug("change feed sub close", zap.String("channel", r.channel))
				return
			}
		}
	}()
	return nil
}
