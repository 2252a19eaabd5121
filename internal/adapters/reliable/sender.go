// Package reliable decorates a sender with rate limiting, a circuit breaker
// and retries. The engine itself never retries; callers opt in by wrapping
// their sender.
package reliable

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/bft-labs/logjam/internal/ports"
)

// Config controls the decorator. Zero values disable the matching stage
// except Attempts, which defaults to one try.
type Config struct {
	// Attempts is the total number of tries per send
	Attempts uint

	// Delay is the base delay for exponential backoff
	Delay time.Duration

	// AttemptTimeout bounds each individual try; zero means no bound
	AttemptTimeout time.Duration

	// RatePerSecond and Burst limit how often the sink is called
	RatePerSecond float64
	Burst         int

	// BreakerFailures opens the breaker after this many consecutive failed sends
	BreakerFailures uint32

	// BreakerTimeout is how long the breaker stays open before probing
	BreakerTimeout time.Duration

	// Name labels the breaker in logs
	Name string
}

// DefaultConfig returns a conservative configuration.
func DefaultConfig() Config {
	return Config{
		Attempts:        3,
		Delay:           200 * time.Millisecond,
		AttemptTimeout:  10 * time.Second,
		RatePerSecond:   100,
		Burst:           20,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
		Name:            "logjam-sink",
	}
}

// Sender wraps another sender.
type Sender struct {
	next    ports.Sender
	cfg     Config
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  ports.Logger
}

// New wraps next according to cfg.
func New(next ports.Sender, cfg Config, logger ports.Logger) *Sender {
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}
	if cfg.Name == "" {
		cfg.Name = "logjam-sink"
	}
	if logger == nil {
		logger = ports.NewNoopLogger()
	}
	s := &Sender{next: next, cfg: cfg, logger: logger}

	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	if cfg.BreakerFailures > 0 {
		s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: 1,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.BreakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					ports.String("breaker", name),
					ports.String("from", from.String()),
					ports.String("to", to.String()),
				)
			},
		})
	}
	return s
}

// Send waits for the rate limiter, then sends through the breaker with
// retries. A response with Success false is returned as is and not retried.
func (s *Sender) Send(ctx context.Context, batch ports.Batch) (ports.Response, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return ports.Response{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	if s.cb == nil {
		return s.sendWithRetry(ctx, batch)
	}
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.sendWithRetry(ctx, batch)
	})
	if err != nil {
		return ports.Response{}, err
	}
	return out.(ports.Response), nil
}

func (s *Sender) sendWithRetry(ctx context.Context, batch ports.Batch) (ports.Response, error) {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(s.cfg.Attempts),
		retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	}
	if s.cfg.Delay > 0 {
		opts = append(opts, retry.Delay(s.cfg.Delay))
	}

	var (
		resp    ports.Response
		attempt int
	)
	err := retry.New(opts...).Do(func() error {
		attempt++
		if attempt > 1 {
			s.logger.Debug("retrying send",
				ports.String("key", string(batch.Key)),
				ports.Int("attempt", attempt),
			)
		}

		actx := ctx
		if s.cfg.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, s.cfg.AttemptTimeout)
			defer cancel()
		}

		var callErr error
		resp, callErr = s.next.Send(actx, batch)
		return callErr
	})
	if err != nil {
		return ports.Response{}, err
	}
	return resp, nil
}

// BreakerState reports the breaker state ("closed", "half-open", "open"),
// or "disabled" when no breaker is configured.
func (s *Sender) BreakerState() string {
	if s.cb == nil {
		return "disabled"
	}
	return s.cb.State().String()
}
