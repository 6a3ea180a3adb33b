package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Handler receives changes. Handlers run synchronously on the publisher's goroutine
// and must not block; long work belongs on a channel or a queue.
type Handler func(ctx context.Context, c Change)

// Publisher is what stores depend on.
type Publisher interface {
	Publish(ctx context.Context, c Change)
}

type subscription struct {
	id      uint64
	name    string
	handler Handler
}

// Bus fans changes out to in-process subscribers in subscription order.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	now    func() time.Time
}

var _ Publisher = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{now: time.Now}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(name string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, name: name, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish stamps c and delivers it to every subscriber.
// A panicking subscriber is logged and skipped.
func (b *Bus) Publish(ctx context.Context, c Change) {
	if c.At.IsZero() {
		c.At = b.now().UTC()
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(ctx, s, c)
	}
}

func (b *Bus) deliver(ctx context.Context, s subscription, c Change) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("subscriber", s.name).
				Str("kind", string(c.Kind)).
				Msg("change subscriber panicked")
		}
	}()
	s.handler(ctx, c)
}
