package sender

import (
	redisAdapter "github.com/bft-labs/logjam/internal/adapters/redis"
	"github.com/bft-labs/logjam/pkg/log"
)

// RedisClient is the subset of the go-redis client the Redis sender uses.
type RedisClient = redisAdapter.Client

// RedisSender pushes batches onto "<prefix>:<key>" and publishes a
// notification on "<prefix>:events".
type RedisSender = redisAdapter.Sender

// RedisNotification is the message published after each push.
type RedisNotification = redisAdapter.Notification

// NewRedisSender creates a Redis sender. An empty prefix uses "logjam".
func NewRedisSender(client RedisClient, prefix string, logger log.Logger) *RedisSender {
	return redisAdapter.NewSender(client, prefix, logger)
}
