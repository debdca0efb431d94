package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CancelFlags stores cooperative cancellation requests.
type CancelFlags interface {
	Request(ctx context.Context, jobID string) error
	Requested(ctx context.Context, jobID string) (bool, error)
	Clear(ctx context.Context, jobID string) error
}

const cancelFlagTTL = 24 * time.Hour

func cancelKey(jobID string) string {
	return fmt.Sprintf("twk:job:%s:cancel", jobID)
}

type redisFlags struct {
	rdb *redis.Client
}

func NewRedisFlags(rdb *redis.Client) CancelFlags {
	return &redisFlags{rdb: rdb}
}

func (f *redisFlags) Request(ctx context.Context, jobID string) error {
	return f.rdb.Set(ctx, cancelKey(jobID), "1", cancelFlagTTL).Err()
}

func (f *redisFlags) Requested(ctx context.Context, jobID string) (bool, error) {
	err := f.rdb.Get(ctx, cancelKey(jobID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (f *redisFlags) Clear(ctx context.Context, jobID string) error {
	return f.rdb.Del(ctx, cancelKey(jobID)).Err()
}

// MemoryFlags keeps flags in process. Used by inline dispatch without Redis
// and by tests.
type MemoryFlags struct {
	mu    sync.Mutex
	flags map[string]struct{}
}

func NewMemoryFlags() *MemoryFlags {
	return &MemoryFlags{flags: make(map[string]struct{})}
}

func (f *MemoryFlags) Request(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[jobID] = struct{}{}
	return nil
}

func (f *MemoryFlags) Requested(_ context.Context, jobID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.flags[jobID]
	return ok, nil
}

func (f *MemoryFlags) Clear(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.flags, jobID)
	return nil
}
