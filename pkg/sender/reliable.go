package sender

import (
	"github.com/bft-labs/logjam/internal/adapters/reliable"
	"github.com/bft-labs/logjam/pkg/log"
)

// ReliableConfig controls NewReliable.
type ReliableConfig = reliable.Config

// ReliableSender decorates another sender.
type ReliableSender = reliable.Sender

// DefaultReliableConfig returns three attempts with exponential backoff,
// 100 sends per second and a breaker that opens after five failed sends.
func DefaultReliableConfig() ReliableConfig {
	return reliable.DefaultConfig()
}

// NewReliable wraps next with a rate limiter, a circuit breaker and retries.
func NewReliable(next Sender, cfg ReliableConfig, logger log.Logger) *ReliableSender {
	return reliable.New(next, cfg, logger)
}
