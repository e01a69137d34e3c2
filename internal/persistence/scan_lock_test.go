package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// noScriptError satisfies redis.Error so Script.Run recognizes the NOSCRIPT
// reply and falls back from EvalSha to Eval.
type noScriptError string

func (e noScriptError) Error() string { return string(e) }

func (noScriptError) RedisError() {}

// fakeLockServer stands in for a redis server: SET NX plus the compare-and-
// delete script, backed by a map.
type fakeLockServer struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeLockServer() *fakeLockServer {
	return &fakeLockServer{values: make(map[string]string)}
}

func (f *fakeLockServer) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.values[key]; held {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeLockServer) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(keys) == 1 && len(args) == 1 && f.values[keys[0]] == fmt.Sprint(args[0]) {
		delete(f.values, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (f *fakeLockServer) EvalSha(_ context.Context, _ string, _ []string, _ ...interface{}) *redis.Cmd {
	return redis.NewCmdResult(nil, noScriptError("NOSCRIPT scripts are not cached"))
}

func (f *fakeLockServer) EvalRO(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return f.Eval(ctx, script, keys, args...)
}

func (f *fakeLockServer) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	return f.EvalSha(ctx, sha1, keys, args...)
}

func (f *fakeLockServer) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (f *fakeLockServer) ScriptLoad(_ context.Context, _ string) *redis.StringCmd {
	return redis.NewStringResult("", errors.New("script load not supported"))
}

// expire simulates the TTL firing while a holder is still running.
func (f *fakeLockServer) expire(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
}

func (f *fakeLockServer) holder(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	val, ok := f.values[key]
	return val, ok
}

func TestRedisScanLockMutualExclusion(t *testing.T) {
	ctx := context.Background()
	server := newFakeLockServer()
	first := NewRedisScanLock(server, "alert-scan", time.Minute)
	second := NewRedisScanLock(server, "alert-scan", time.Minute)

	acquired, err := first.TryLock(ctx)
	assert.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = second.TryLock(ctx)
	assert.NoError(t, err)
	assert.False(t, acquired)

	assert.NoError(t, first.Unlock(ctx))

	acquired, err = second.TryLock(ctx)
	assert.NoError(t, err)
	assert.True(t, acquired)
}

func TestRedisScanLockStaleHolderCannotRelease(t *testing.T) {
	ctx := context.Background()
	server := newFakeLockServer()
	stale := NewRedisScanLock(server, "alert-scan", time.Minute)
	fresh := NewRedisScanLock(server, "alert-scan", time.Minute)

	acquired, err := stale.TryLock(ctx)
	assert.NoError(t, err)
	assert.True(t, acquired)

	// The stale holder's TTL fires mid-scan and another instance takes over.
	server.expire("alert-scan")
	acquired, err = fresh.TryLock(ctx)
	assert.NoError(t, err)
	assert.True(t, acquired)
	freshToken, _ := server.holder("alert-scan")

	// The stale holder finishing late must not release the new holder's lock.
	assert.NoError(t, stale.Unlock(ctx))
	held, ok := server.holder("alert-scan")
	assert.True(t, ok)
	assert.Equal(t, freshToken, held)

	assert.NoError(t, fresh.Unlock(ctx))
	_, ok = server.holder("alert-scan")
	assert.False(t, ok)
}

func TestLocalScanLock(t *testing.T) {
	ctx := context.Background()
	lock := NewLocalScanLock()

	acquired, err := lock.TryLock(ctx)
	assert.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = lock.TryLock(ctx)
	assert.NoError(t, err)
	assert.False(t, acquired)

	assert.NoError(t, lock.Unlock(ctx))

	acquired, err = lock.TryLock(ctx)
	assert.NoError(t, err)
	assert.True(t, acquired)
}
