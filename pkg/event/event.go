// Package event is an in-process event bus. Listeners run synchronously
// with Fire or on their own goroutine with FireAsync.
package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// Handler receives an event payload. Errors are logged, never returned to
// the firing code.
type Handler func(ctx context.Context, payload interface{}) error

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
}

func NewBus() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

// Listen registers h for event.
func (b *Bus) Listen(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

func (b *Bus) listeners(event string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[event]...)
}

// Fire runs every listener in registration order before returning.
func (b *Bus) Fire(ctx context.Context, event string, payload interface{}) {
	for _, h := range b.listeners(event) {
		b.run(ctx, event, h, payload)
	}
}

// FireAsync runs every listener on its own goroutine. The listeners get a
// context detached from ctx's cancellation so they outlive the request.
func (b *Bus) FireAsync(ctx context.Context, event string, payload interface{}) {
	detached := context.WithoutCancel(ctx)
	for _, h := range b.listeners(event) {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			b.run(detached, event, h, payload)
		}(h)
	}
}

// Wait blocks until every FireAsync listener has returned.
func (b *Bus) Wait() { b.wg.Wait() }

func (b *Bus) run(ctx context.Context, event string, h Handler, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("event listener panicked", "event", event, "panic", fmt.Sprint(r))
		}
	}()
	if err := h(ctx, payload); err != nil {
		logger.WithCtx(ctx).Warn("event listener failed", "event", event, "error", err)
	}
}
