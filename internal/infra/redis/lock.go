package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/openctemio/scanctl/internal/app/lock"
)

// releaseScript deletes the key only if it still carries the caller's token.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// acquirePoll is the interval between acquisition attempts while a lock is held.
const acquirePoll = 250 * time.Millisecond

var errBusy = errors.New("lock busy")

// Locker implements lock.Locker on a single Redis instance.
type Locker struct {
	client *Client
	ttl    time.Duration
	wait   time.Duration
}

// NewLocker creates a Locker. Leases expire after ttl; Acquire waits up to
// wait for a held lock to be released.
func NewLocker(client *Client, ttl, wait time.Duration) *Locker {
	return &Locker{client: client, ttl: ttl, wait: wait}
}

// Acquire implements lock.Locker.
func (l *Locker) Acquire(ctx context.Context, key string) (lock.Lease, error) {
	token := uuid.NewString()

	op := func() (struct{}, error) {
		ok, err := l.client.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("redis setnx: %w", err))
		}
		if !ok {
			return struct{}{}, errBusy
		}
		return struct{}{}, nil
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(acquirePoll)),
		backoff.WithNotify(func(error, time.Duration) {
			l.client.logger.Info("waiting for resource lock", "key", key)
		}),
	}
	if l.wait > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(l.wait))
	} else {
		opts = append(opts, backoff.WithMaxTries(1))
	}

	if _, err := backoff.Retry(ctx, op, opts...); err != nil {
		if errors.Is(err, errBusy) {
			return nil, lock.HeldError(key)
		}
		return nil, err
	}

	l.client.logger.Debug("resource lock acquired", "key", key, "ttl", l.ttl)
	return &lease{client: l.client, key: key, token: token}, nil
}

type lease struct {
	client *Client
	key    string
	token  string
}

// Release deletes the lock if this lease still holds it.
func (s *lease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, s.client.client, []string{s.key}, s.token).Int()
	if err != nil {
		return fmt.Errorf("redis release %s: %w", s.key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotHeld, s.key)
	}
	s.client.logger.Debug("resource lock released", "key", s.key)
	return nil
}
