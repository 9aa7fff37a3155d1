// Package redis provides the Redis-backed resource lock.
//
// A lock is a single key set with NX and a TTL. The value is a random token
// so that only the holder can delete it; release runs a compare-and-delete
// script. The TTL bounds how long a crashed run can block others.
//
//	client, err := redis.New(&cfg.Lock, log)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	locker := redis.NewLocker(client, cfg.Lock.TTL, cfg.Lock.WaitTimeout)
//	lease, err := locker.Acquire(ctx, lock.Key("scan", name))
package redis
