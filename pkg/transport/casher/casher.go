// Package casher keeps serialized forms in Redis so reads can skip the store
package casher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Koyo-os/form-builder/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FORM_KEY_TEMPLATE namespaces every cached form under "form:"
const FORM_KEY_TEMPLATE = "form:%s"

// ErrMiss is returned when nothing is cached for a key
var ErrMiss = errors.New("cache miss")

// client is the part of the redis API the casher needs
type client interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

type Casher struct {
	client client
	ttl    time.Duration // 0 keeps entries until evicted
	logger *logger.Logger
}

func Init(client *redis.Client, ttl time.Duration, logger *logger.Logger) *Casher {
	return &Casher{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Connect parses a redis:// url and verifies the server answers
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("error parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

func Key(id string) string {
	return fmt.Sprintf(FORM_KEY_TEMPLATE, id)
}

// AddToCash stores payload, which must be a string or []byte, under the form id
func (c *Casher) AddToCash(ctx context.Context, key string, payload any) error {
	if err := c.client.Set(ctx, Key(key), payload, c.ttl).Err(); err != nil {
		c.logger.Error("failed to cash payload with",
			zap.String("key", key),
			zap.Error(err),
		)
		return err
	}

	return nil
}

func (c *Casher) GetCashFor(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, Key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.logger.Debug("cache miss", zap.String("key", key))
			return nil, ErrMiss
		}

		c.logger.Error("error get cash",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, err
	}

	return data, nil
}

func (c *Casher) RemoveFromCash(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, Key(key)).Err(); err != nil {
		c.logger.Error("error delete from redis",
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	return nil
}

func (c *Casher) IsHealthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return c.client.Ping(ctx).Err() == nil
}

func (c *Casher) Close() error {
	return c.client.Close()
}

// Nop is used when no redis url is configured, every read misses
type Nop struct{}

func (Nop) AddToCash(context.Context, string, any) error { return nil }

func (Nop) GetCashFor(context.Context, string) ([]byte, error) { return nil, ErrMiss }

func (Nop) RemoveFromCash(context.Context, string) error { return nil }
