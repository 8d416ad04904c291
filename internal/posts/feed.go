package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lens/internal/database"
)

// NotifyChannel is the Postgres channel the posts_notify trigger publishes on
const NotifyChannel = "posts_changes"

const subscriberBuffer = 16

// ErrBrokerClosed is returned by Subscribe after Close
var ErrBrokerClosed = errors.New("change feed closed")

// Subscription delivers change events until it is closed or the feed
// disconnects, in which case Events is closed by the broker.
type Subscription interface {
	Events() <-chan ChangeEvent
	Close() error
}

// Broker listens on the posts change channel and fans events out to every
// subscriber. Sends never block: a subscriber with a full buffer misses the
// event, which is harmless because any event triggers a full re-fetch.
type Broker struct {
	db             database.Service
	logger         *slog.Logger
	reconnectDelay time.Duration

	mu       sync.Mutex
	subs     map[*subscription]struct{}
	handlers []func(context.Context, ChangeEvent)
	closed   bool
}

// NewBroker creates a broker. db may be nil when events are only published
// in-process.
func NewBroker(db database.Service, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		db:             db,
		logger:         logger,
		reconnectDelay: 5 * time.Second,
		subs:           make(map[*subscription]struct{}),
	}
}

// OnEvent registers a callback run for every event before fan-out
func (b *Broker) OnEvent(fn func(context.Context, ChangeEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, fn)
}

// Subscribe registers a new subscriber
func (b *Broker) Subscribe(_ context.Context) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}

	sub := &subscription{broker: b, ch: make(chan ChangeEvent, subscriberBuffer)}
	b.subs[sub] = struct{}{}
	return sub, nil
}

// Subscribers returns the number of live subscriptions
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish delivers ev to the hooks and every subscriber
func (b *Broker) Publish(ctx context.Context, ev ChangeEvent) {
	b.mu.Lock()
	handlers := append([]func(context.Context, ChangeEvent){}, b.handlers...)
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(ctx, ev)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			b.logger.Debug("subscriber buffer full, event coalesced", "op", ev.Op, "post_id", ev.ID)
		}
	}
}

// Disconnect ends every current subscription, as a lost feed connection
// does. Subscribers see their Events channel closed.
func (b *Broker) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// Close disconnects everyone and rejects new subscriptions
func (b *Broker) Close() {
	b.Disconnect()
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Run listens for notifications until ctx is cancelled. When the listening
// connection fails, current subscribers are disconnected and the broker
// reconnects after a delay for future subscribers.
func (b *Broker) Run(ctx context.Context) error {
	if b.db == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	for {
		err := b.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b.logger.Error("change feed connection lost, reconnecting", "error", err, "subscribers", b.Subscribers())
		b.Disconnect()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.reconnectDelay):
		}
	}
}

func (b *Broker) listen(ctx context.Context) error {
	conn, err := b.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		return fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}
	b.logger.Info("listening for post changes", "channel", NotifyChannel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		ev, err := ParseChangeEvent([]byte(n.Payload))
		if err != nil {
			b.logger.Warn("ignoring malformed change notification", "payload", n.Payload, "error", err)
			continue
		}

		b.Publish(ctx, ev)
	}
}

// ParseChangeEvent decodes a posts_notify payload
func ParseChangeEvent(payload []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	switch ev.Op {
	case OpInsert, OpUpdate, OpDelete:
		return ev, nil
	default:
		return ChangeEvent{}, fmt.Errorf("unknown change op %q", ev.Op)
	}
}

type subscription struct {
	broker *Broker
	ch     chan ChangeEvent
}

func (s *subscription) Events() <-chan ChangeEvent {
	return s.ch
}

func (s *subscription) Close() error {
	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		close(s.ch)
	}
	return nil
}
