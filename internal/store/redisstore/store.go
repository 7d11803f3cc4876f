package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

const (
	lockKeyPrefix = "support:session_lock:"
	lockTTL       = 60 * time.Second
	lockPoll      = 50 * time.Millisecond
)

// releaseScript deletes the lock only when the holder's token still matches,
// so an expired-and-reacquired lock is never released by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Lock implements chat.SessionLocker across instances via SET NX PX.
// It polls until the lock is acquired or ctx is done; the TTL bounds how
// long a crashed holder can wedge a session.
func (s *Store) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := lockKeyPrefix + sessionID
	token := uuid.New().String()

	for {
		ok, err := s.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}

		t := time.NewTimer(lockPoll)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	unlock := func() {
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = releaseScript.Run(rctx, s.client, []string{key}, token).Result()
	}
	return unlock, nil
}

// ErrLockHeld reports a non-blocking acquisition attempt against a held lock.
var ErrLockHeld = errors.New("session lock held")

// TryLock acquires the lock without waiting.
func (s *Store) TryLock(ctx context.Context, sessionID string) (func(), error) {
	key := lockKeyPrefix + sessionID
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, key, token, lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}

	unlock := func() {
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = releaseScript.Run(rctx, s.client, []string{key}, token).Result()
	}
	return unlock, nil
}
