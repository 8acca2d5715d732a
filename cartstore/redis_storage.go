package cartstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultRedisHash is the hash every storefront key lives in.
const DefaultRedisHash = "storefront"

// RedisStorage keeps values as fields of a single Redis hash and announces every
// write on a pub/sub channel so other storefront replicas can re-hydrate.
type RedisStorage struct {
	client      *redis.Client
	hash        string
	maxAttempts int
	log         logrus.FieldLogger
}

// NewRedisStorage accepts either a redis:// URL or a plain host:port.
func NewRedisStorage(redisAddr, hash string, log logrus.FieldLogger) *RedisStorage {
	opts, err := redis.ParseURL(redisAddr)
	if err != nil {
		opts = &redis.Options{
			Addr:         redisAddr,
			MinIdleConns: 1,
			MaxRetries:   30,
			DialTimeout:  30 * time.Second,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			PoolSize:     10,
			PoolTimeout:  4 * time.Second,
			IdleTimeout:  180 * time.Second,
		}
	}
	if hash == "" {
		hash = DefaultRedisHash
	}
	return &RedisStorage{
		client:      redis.NewClient(opts),
		hash:        hash,
		maxAttempts: 30,
		log:         log,
	}
}

// Initialize pings Redis with exponential backoff until it answers or ctx ends.
func (r *RedisStorage) Initialize(ctx context.Context) error {
	r.log.Info("RedisStorage: initializing connection...")

	for i := 0; i < r.maxAttempts; i++ {
		if r.Ping(ctx) {
			r.log.WithField("attempt", i+1).Info("RedisStorage: ping successful")
			return nil
		}

		backoff := time.Duration(1000*(1<<uint(i))) * time.Millisecond
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
		r.log.WithField("attempt", i+1).Warnf("RedisStorage: waiting %v before next attempt", backoff)

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "redis initialization cancelled")
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("failed to connect to Redis after %d attempts", r.maxAttempts)
}

func (r *RedisStorage) channel(key string) string {
	return r.hash + ":changed:" + key
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.HGet(ctx, r.hash, key).Result()
	if err == redis.Nil {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "redis HGET %s %s", r.hash, key)
	}
	return val, nil
}

func (r *RedisStorage) Set(ctx context.Context, key, value string) error {
	if err := r.client.HSet(ctx, r.hash, key, value).Err(); err != nil {
		return errors.Wrapf(err, "redis HSET %s %s", r.hash, key)
	}
	r.publish(ctx, key)
	return nil
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := r.client.HDel(ctx, r.hash, key).Err(); err != nil {
		return errors.Wrapf(err, "redis HDEL %s %s", r.hash, key)
	}
	r.publish(ctx, key)
	return nil
}

// publish is best-effort: the value is already stored.
func (r *RedisStorage) publish(ctx context.Context, key string) {
	if err := r.client.Publish(ctx, r.channel(key), "changed").Err(); err != nil {
		r.log.WithError(err).WithField("key", key).Warn("RedisStorage: publish change failed")
	}
}

func (r *RedisStorage) Ping(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.client.Ping(pingCtx).Err(); err != nil {
		r.log.WithError(err).Warn("RedisStorage: ping failed")
		return false
	}
	return true
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}

// Watch subscribes to the change channel of key.
func (r *RedisStorage) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	sub := r.client.Subscribe(ctx, r.channel(key))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, errors.Wrapf(err, "subscribe to %s", r.channel(key))
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}
