package matching

import (
	"context"
	"sync"
)

// assetLocks hands out one token channel per asset. Holding the token
// serializes match runs of that asset; other assets are unaffected.
type assetLocks struct {
	sync.RWMutex
	m map[uint]chan struct{}
}

func newAssetLocks() *assetLocks {
	return &assetLocks{m: make(map[uint]chan struct{})}
}

func (l *assetLocks) getch(id uint) chan struct{} {
	l.RLock()
	ch, ok := l.m[id]
	l.RUnlock()
	if ok {
		return ch
	}
	l.Lock()
	defer l.Unlock()
	ch, ok = l.m[id]
	if !ok {
		ch = make(chan struct{}, 1)
		ch <- struct{}{}
		l.m[id] = ch
	}
	return ch
}

// lock blocks until the asset's token is free or ctx is done.
// The returned func releases the token.
func (l *assetLocks) lock(ctx context.Context, id uint) (func(), error) {
	ch := l.getch(id)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-ch:
		return func() { ch <- struct{}{} }, nil
	}
}
