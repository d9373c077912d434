package execution

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of distinct commands kept by CachedRunner
const DefaultCacheSize = 64

// CachedRunner memoizes successful results of another Runner by command
// string. Failures are not cached.
type CachedRunner struct {
	next  Runner
	cache *lru.Cache[string, []string]
}

// NewCachedRunner wraps next with an LRU cache holding up to size commands
func NewCachedRunner(next Runner, size int) (*CachedRunner, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []string](size)
	if err != nil {
		return nil, fmt.Errorf("create command cache: %w", err)
	}
	return &CachedRunner{next: next, cache: cache}, nil
}

// Run implements Runner
func (r *CachedRunner) Run(ctx context.Context, command string) ([]string, error) {
	if lines, ok := r.cache.Get(command); ok {
		return append([]string(nil), lines...), nil
	}

	lines, err := r.next.Run(ctx, command)
	if err != nil {
		return nil, err
	}
	r.cache.Add(command, append([]string(nil), lines...))
	return lines, nil
}

// Len returns the number of cached commands
func (r *CachedRunner) Len() int {
	return r.cache.Len()
}

// Purge drops every cached result
func (r *CachedRunner) Purge() {
	r.cache.Purge()
}
