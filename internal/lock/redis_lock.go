package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/bcllcc/MockMate/internal/utils"
)

// releaseScript deletes the lock only when it is still owned by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lease only when it is still owned by the caller.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

const retryDelay = 50 * time.Millisecond

// RedisLocker is a lease-based Locker shared by every API instance. A lease
// expires after ttl so a crashed holder cannot block a session forever; while
// the holder is alive the lease is renewed every ttl/3, so slow backend calls
// under the lock do not outlive it.
type RedisLocker struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *logrus.Logger
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration, l *logrus.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if l == nil {
		l = logrus.New()
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, prefix: "mockmate:lock:session:", log: l}
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	const op = "RedisLocker.Lock"

	k := r.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(retryDelay)
	defer ticker.Stop()

	for {
		ok, err := r.rdb.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, utils.E(utils.CodeConflict, op, "session is busy", utils.ErrSessionBusy)
			}
			return nil, utils.E(utils.CodeUnavailable, op, "failed to acquire session lock", err)
		}
		if ok {
			break
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, utils.E(utils.CodeConflict, op, "session is busy", utils.ErrSessionBusy)
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(k, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// release even when the caller's ctx is already cancelled
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, r.rdb, []string{k}, token).Err(); err != nil {
				r.log.WithError(err).WithField("key", k).Warn("failed to release session lock")
			}
		})
	}, nil
}

func (r *RedisLocker) keepAlive(k, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	every := r.ttl / 3
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), every)
		n, err := renewScript.Run(ctx, r.rdb, []string{k}, token, r.ttl.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil:
			r.log.WithError(err).WithField("key", k).Warn("failed to renew session lock")
		case n == 0:
			// expired and possibly taken; the version check rejects a late write
			r.log.WithField("key", k).Warn("session lock lease lost")
			return
		}
	}
}

var _ Locker = (*RedisLocker)(nil)
