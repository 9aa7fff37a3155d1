// Package settle polls the remote platform until a written change becomes
// observable. The platform applies creates and exports asynchronously, so a
// stage that reads back what it just wrote waits here first.
package settle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/openctemio/scanctl/internal/metrics"
	"github.com/openctemio/scanctl/pkg/domain/shared"
	"github.com/openctemio/scanctl/pkg/logger"
)

// ErrTimeout is returned when a condition never held within the poll budget.
var ErrTimeout = fmt.Errorf("settle %w", shared.ErrTimeout)

var errNotReady = errors.New("condition not met")

// Condition reports whether the awaited state is visible. A non-nil error
// aborts the poll.
type Condition func(ctx context.Context) (bool, error)

// Config defines the poll budget.
type Config struct {
	// Interval between checks, or the initial interval when Exponential is set.
	Interval time.Duration
	// MaxInterval caps the exponential interval.
	MaxInterval time.Duration
	// MaxAttempts bounds the number of checks (0 = unbounded, Timeout still applies).
	MaxAttempts uint
	// Timeout bounds the total wait.
	Timeout time.Duration
	// Exponential doubles the interval after each miss.
	Exponential bool
}

// DefaultConfig returns the default poll budget.
func DefaultConfig() Config {
	return Config{
		Interval:    2 * time.Second,
		MaxInterval: 15 * time.Second,
		MaxAttempts: 30,
		Timeout:     2 * time.Minute,
	}
}

// Validate checks the config.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("settle interval must be > 0, got %v", c.Interval)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("settle timeout must be > 0, got %v", c.Timeout)
	}
	if c.Exponential && c.MaxInterval < c.Interval {
		return fmt.Errorf("settle max interval %v is below interval %v", c.MaxInterval, c.Interval)
	}
	return nil
}

func (c Config) backOff() backoff.BackOff {
	if !c.Exponential {
		return backoff.NewConstantBackOff(c.Interval)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.Interval
	b.MaxInterval = c.MaxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

// Poller waits for conditions.
type Poller struct {
	cfg    Config
	logger *logger.Logger
}

// New creates a Poller.
func New(cfg Config, log *logger.Logger) *Poller {
	return &Poller{cfg: cfg, logger: log}
}

// Until checks cond immediately and then on every interval until it holds,
// the budget runs out (ErrTimeout) or ctx is done. name labels the condition
// in logs and metrics.
func (p *Poller) Until(ctx context.Context, name string, cond Condition) error {
	attempts := 0
	start := time.Now()

	op := func() (struct{}, error) {
		attempts++
		metrics.SettleAttemptsTotal.WithLabelValues(name).Inc()

		ok, err := cond(ctx)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if !ok {
			return struct{}{}, errNotReady
		}
		return struct{}{}, nil
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.cfg.backOff()),
		backoff.WithMaxElapsedTime(p.cfg.Timeout),
		backoff.WithNotify(func(_ error, next time.Duration) {
			p.logger.Debug("waiting for platform to settle",
				"condition", name,
				"attempt", attempts,
				"next_check", next,
			)
		}),
	}
	if p.cfg.MaxAttempts > 0 {
		opts = append(opts, backoff.WithMaxTries(p.cfg.MaxAttempts))
	}

	_, err := backoff.Retry(ctx, op, opts...)
	if err == nil {
		p.logger.Debug("platform settled", "condition", name, "attempts", attempts, "elapsed", time.Since(start))
		return nil
	}
	if errors.Is(err, errNotReady) {
		metrics.SettleTimeoutsTotal.WithLabelValues(name).Inc()
		return fmt.Errorf("%w: %s not observed after %d attempts in %s",
			ErrTimeout, name, attempts, time.Since(start).Round(time.Millisecond))
	}
	return err
}
