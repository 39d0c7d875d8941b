package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/imgcache/model"
)

// CountingLoader is a configurable in-memory loader that counts its calls.
// The zero value returns the key's string form as payload.
type CountingLoader struct {
	// Data returns the payload for key. Defaults to []byte(key.String()).
	Data func(key model.Key) []byte
	// Err fails the load when it returns non-nil.
	Err func(key model.Key) error
	// Delay is slept before returning, unless ctx ends first.
	Delay time.Duration
	// Gate, if non-nil, blocks every load until it is closed or ctx ends.
	Gate chan struct{}

	calls  atomic.Int64
	active atomic.Int64

	mu     sync.Mutex
	perKey map[model.Key]int
}

// Load implements the loader contract.
func (l *CountingLoader) Load(ctx context.Context, key model.Key) (*model.Entry, error) {
	l.calls.Add(1)
	l.active.Add(1)
	defer l.active.Add(-1)

	l.mu.Lock()
	if l.perKey == nil {
		l.perKey = make(map[model.Key]int)
	}
	l.perKey[key]++
	l.mu.Unlock()

	if l.Gate != nil {
		select {
		case <-l.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if l.Delay > 0 {
		t := time.NewTimer(l.Delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if l.Err != nil {
		if err := l.Err(key); err != nil {
			return nil, err
		}
	}

	data := []byte(key.String())
	if l.Data != nil {
		data = l.Data(key)
	}
	return &model.Entry{Data: data, ContentType: "image/webp"}, nil
}

// Calls returns the total number of Load calls.
func (l *CountingLoader) Calls() int64 {
	return l.calls.Load()
}

// Active returns the number of Load calls currently running.
func (l *CountingLoader) Active() int64 {
	return l.active.Load()
}

// CallsFor returns the number of Load calls for key.
func (l *CountingLoader) CallsFor(key model.Key) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perKey[key]
}
