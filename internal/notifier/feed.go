package notifier

import (
	"context"
	"sync"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// DefaultFeedSize is the number of notifications kept per owner when the
// configured size is not positive.
const DefaultFeedSize = 50

// Feed keeps the latest notifications of every owner in memory.
type Feed struct {
	size int

	mu    sync.RWMutex
	items map[string][]domain.Notification
}

// NewFeed returns a feed keeping up to size notifications per owner.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = DefaultFeedSize
	}

	return &Feed{
		size:  size,
		items: make(map[string][]domain.Notification),
	}
}

// Notify appends n to the feed of its owner, dropping the oldest entry when
// the feed is full.
func (f *Feed) Notify(_ context.Context, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := append(f.items[n.Owner], n)
	if len(items) > f.size {
		items = items[len(items)-f.size:]
	}

	f.items[n.Owner] = items

	return nil
}

// List returns the notifications of owner, newest first.
func (f *Feed) List(owner string) []domain.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	items := f.items[owner]
	out := make([]domain.Notification, 0, len(items))

	for i := len(items) - 1; i >= 0; i-- {
		out = append(out, items[i])
	}

	return out
}

// Clear drops the notifications of owner.
func (f *Feed) Clear(owner string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.items, owner)
}
