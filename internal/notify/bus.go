// Package notify carries extraction snapshots from the capture surface that
// produced them to any number of passive observers.
package notify

import (
	"slices"
	"sync"

	"github.com/raphaelgruber/fieldlog/internal/models"
)

// Event is one broadcast: the latest extraction plus the interaction the
// service persisted for it, if any.
type Event struct {
	ExtractedData models.Extraction   `json:"extractedData"`
	Interaction   *models.Interaction `json:"interaction,omitempty"`
}

// Publisher is the write side of a Bus.
type Publisher interface {
	Publish(Event)
}

// Bus is a fire-and-forget broadcast channel. Publish delivers to the
// subscribers present at call time and returns; there is no queue, so an
// event published with no subscribers is dropped.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

// NewBus returns an empty Bus. Create one per session and hand it to both
// sides explicitly.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish hands ev to every current subscriber, in subscription order.
// Publishing on a nil Bus drops the event.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.subs[id])
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
