package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

type slot struct {
	ch   chan struct{} // capacity 1; holding the token means holding the lock
	refs int
}

// Locks is a set of per-portfolio mutexes whose acquisition can time out.
// Slots are created on demand and dropped once no goroutine references them.
type Locks struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// NewLocks creates an empty lock set.
func NewLocks() *Locks {
	return &Locks{slots: make(map[string]*slot)}
}

func (l *Locks) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Locks) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Acquire locks key, waiting at most timeout. It returns domain.ErrBusy
// if the lock is not obtained in time or ctx ends first. A non-positive
// timeout only succeeds if the lock is free right now. The returned
// release func is safe to call more than once.
func (l *Locks) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	s := l.ref(key)

	if err := l.wait(ctx, s, timeout); err != nil {
		l.unref(key, s)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(key, s)
		})
	}, nil
}

func (l *Locks) wait(ctx context.Context, s *slot, timeout time.Duration) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	default:
	}
	if timeout <= 0 {
		return domain.ErrBusy
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case s.ch <- struct{}{}:
		return nil
	case <-t.C:
		return domain.ErrBusy
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrBusy, ctx.Err())
	}
}
