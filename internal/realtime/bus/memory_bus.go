package bus

import (
	"context"
	"fmt"
	"sync"
)

type memoryBus struct {
	mu   sync.RWMutex
	subs map[int]func(Event)
	next int
}

// NewMemoryBus delivers events synchronously to forwarders in the same process.
func NewMemoryBus() Bus {
	return &memoryBus{subs: make(map[int]func(Event))}
}

func (b *memoryBus) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	subs := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onMsg func(ev Event)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = onMsg
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()
	return nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	b.subs = make(map[int]func(Event))
	b.mu.Unlock()
	return nil
}
