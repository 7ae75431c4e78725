package nonce

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const defaultKeyPrefix = "sso:nonce:"

// Redis shares consumed nonces between bridge instances. SETNX gives the
// atomic check-and-insert; the key TTL gives per-nonce expiry.
type Redis struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
	log       *logrus.Entry
}

// NewRedis connects to the server at url (redis://host:port/db).
func NewRedis(
	url string,
	retention time.Duration,
	log *logrus.Logger,
) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %v", err)
	}
	return NewRedisWithClient(redis.NewClient(opts), retention, log), nil
}

func NewRedisWithClient(
	client *redis.Client,
	retention time.Duration,
	log *logrus.Logger,
) *Redis {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Redis{
		client:    client,
		prefix:    defaultKeyPrefix,
		retention: retention,
		log:       log.WithField("component", "nonce.redis"),
	}
}

func (s *Redis) CheckAndInsert(
	ctx context.Context,
	nonce string,
) (
	bool,
	error,
) {
	inserted, err := s.client.SetNX(ctx, s.prefix+nonce, time.Now().Unix(), s.retention).Result()
	if err != nil {
		return false, fmt.Errorf("couldn't record nonce: %v", err)
	}
	return inserted, nil
}

func (s *Redis) PurgeAll(ctx context.Context) error {
	var cursor uint64
	purged := 0
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("couldn't scan nonces: %v", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("couldn't delete nonces: %v", err)
			}
			purged += len(keys)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	s.log.WithField("purged", purged).Debug("cleared nonce store")
	return nil
}

func (s *Redis) Start() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.log.WithError(err).Warn("redis not reachable, nonce checks will fail until it is")
		return
	}
	s.log.WithField("retention", s.retention).Info("nonce store started")
}

func (s *Redis) Stop() {
	if err := s.client.Close(); err != nil {
		s.log.WithError(err).Warn("failed to close redis client")
	}
}
