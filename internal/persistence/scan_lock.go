package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ScanLock guards the alert scan against overlapping runs. TryLock returns
// false when another run is in flight; callers skip, they never queue.
type ScanLock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// RedisLockCmdable is the slice of the redis client the lock uses.
type RedisLockCmdable interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

// unlockScript releases the lock only while it still holds our token. A scan
// that outlives the TTL must not delete a lock another instance has since
// acquired.
var unlockScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// redisScanLock implements ScanLock with SET NX and a TTL so a crashed holder
// cannot wedge the scan forever. Safe across service instances.
type redisScanLock struct {
	client RedisLockCmdable
	key    string
	ttl    time.Duration
	token  string
}

// NewRedisScanLock builds a cross-instance scan lock.
func NewRedisScanLock(client RedisLockCmdable, key string, ttl time.Duration) ScanLock {
	return &redisScanLock{client: client, key: key, ttl: ttl}
}

func (l *redisScanLock) TryLock(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil || !acquired {
		return false, err
	}
	l.token = token
	return true, nil
}

func (l *redisScanLock) Unlock(ctx context.Context) error {
	return unlockScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}

// localScanLock is the fallback when redis is unavailable; it only serializes
// runs within one process.
type localScanLock struct {
	mu sync.Mutex
}

// NewLocalScanLock builds an in-process scan lock.
func NewLocalScanLock() ScanLock {
	return &localScanLock{}
}

func (l *localScanLock) TryLock(_ context.Context) (bool, error) {
	return l.mu.TryLock(), nil
}

func (l *localScanLock) Unlock(_ context.Context) error {
	l.mu.Unlock()
	return nil
}
