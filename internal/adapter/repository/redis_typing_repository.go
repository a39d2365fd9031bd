package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fazaachat/internal/domain/repository"
	"fazaachat/pkg/errors"
	"fazaachat/pkg/logger"
)

// redisTypingRepository stores each flag under typingStatus:{c}:{u} with a
// TTL and publishes every write on a channel of the same name.
type redisTypingRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTypingRepository keeps flags for ttl. A true flag whose writer
// vanished without clearing it reads as false once the key expires.
func NewRedisTypingRepository(client *redis.Client, ttl time.Duration) repository.TypingRepository {
	if ttl <= 0 {
		ttl = 4 * time.Second
	}
	return &redisTypingRepository{
		client: client,
		ttl:    ttl,
	}
}

func typingKeyRedis(conversationID, userID string) string {
	return fmt.Sprintf("%s:%s:%s", typingCollection, conversationID, userID)
}

func encodeTyping(typing bool) string {
	if typing {
		return "1"
	}
	return "0"
}

func (r *redisTypingRepository) SetTyping(ctx context.Context, conversationID, userID string, typing bool) error {
	key := typingKeyRedis(conversationID, userID)
	value := encodeTyping(typing)

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, value, r.ttl)
	pipe.Publish(ctx, key, value)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Internal("Failed to update typing status", err)
	}
	return nil
}

func (r *redisTypingRepository) current(ctx context.Context, key string) (bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value == "1", nil
}

// Watch subscribes before reading the current value so no write between the
// two is lost. While the flag is true the key is re-read after every TTL to
// notice a server-side expiry, which publishes nothing.
func (r *redisTypingRepository) Watch(ctx context.Context, conversationID, userID string) (<-chan bool, error) {
	key := typingKeyRedis(conversationID, userID)

	sub := r.client.Subscribe(ctx, key)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, errors.Internal("Failed to subscribe to typing status", err)
	}
	typing, err := r.current(ctx, key)
	if err != nil {
		sub.Close()
		return nil, errors.Internal("Failed to read typing status", err)
	}

	out := make(chan bool, 1)
	out <- typing
	go func() {
		defer close(out)
		defer sub.Close()

		messages := sub.Channel()
		recheck := time.NewTimer(r.ttl)
		defer recheck.Stop()
		if !typing {
			recheck.Stop()
		}

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				typing = msg.Payload == "1"
			case <-recheck.C:
				v, err := r.current(ctx, key)
				if err != nil {
					if ctx.Err() == nil {
						logger.Warn("Redis read of %s failed: %v", key, err)
					}
					recheck.Reset(r.ttl)
					continue
				}
				typing = v
			}

			if typing {
				recheck.Reset(r.ttl)
			}
			if !sendLatest(ctx, out, typing) {
				return
			}
		}
	}()
	return out, nil
}
