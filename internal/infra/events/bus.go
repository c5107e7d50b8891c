package events

import (
	"context"
	"log/slog"
	"sync"

	"salon-booking/internal/usecase/shared"
)

// Handler reacts to a fact. Errors are logged, never returned to the publisher.
type Handler func(ctx context.Context, fact shared.Fact) error

type envelope struct {
	ctx  context.Context
	fact shared.Fact
}

// Bus is an in-process fan-out of facts. Publish never blocks: when the
// buffer is full the fact is dropped with a warning.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[shared.FactKind][]Handler
	queue       chan envelope
	closed      bool
	done        chan struct{}
	logger      *slog.Logger
}

func NewBus(buffer int, logger *slog.Logger) *Bus {
	if buffer <= 0 {
		buffer = 1
	}
	return &Bus{
		subscribers: make(map[shared.FactKind][]Handler),
		queue:       make(chan envelope, buffer),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

func (b *Bus) Subscribe(kind shared.FactKind, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[kind] = append(b.subscribers[kind], handler)
}

func (b *Bus) Publish(ctx context.Context, fact shared.Fact) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("event bus stopped, fact dropped", "kind", string(fact.Kind()))
		return
	}

	select {
	case b.queue <- envelope{ctx: context.WithoutCancel(ctx), fact: fact}:
	default:
		b.logger.Warn("event bus full, fact dropped", "kind", string(fact.Kind()))
	}
}

// Start runs the dispatch loop until Stop is called.
func (b *Bus) Start() {
	go b.run()
}

// Stop rejects further facts and waits for queued ones to be handled.
func (b *Bus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) run() {
	defer close(b.done)
	for env := range b.queue {
		b.dispatch(env)
	}
}

func (b *Bus) dispatch(env envelope) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[env.fact.Kind()]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.invoke(env, handler)
	}
}

func (b *Bus) invoke(env envelope, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("fact handler panicked", "kind", string(env.fact.Kind()), "panic", r)
		}
	}()
	if err := handler(env.ctx, env.fact); err != nil {
		b.logger.Warn("fact handler failed", "kind", string(env.fact.Kind()), "error", err.Error())
	}
}
