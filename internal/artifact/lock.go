package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// keyedLock hands out one token per key. Waiting respects the context.
type keyedLock struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func (k *keyedLock) acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	if k.slots == nil {
		k.slots = make(map[string]chan struct{})
	}
	slot, ok := k.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		k.slots[key] = slot
	}
	k.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

const fileLockRetry = 100 * time.Millisecond

// lockFile takes the advisory lock <dir>.lock, creating parents as needed.
func lockFile(ctx context.Context, dir string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	fl := flock.New(dir + ".lock")
	ok, err := fl.TryLockContext(ctx, fileLockRetry)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("failed to lock %s", fl.Path())
	}
	return func() { _ = fl.Unlock() }, nil
}
