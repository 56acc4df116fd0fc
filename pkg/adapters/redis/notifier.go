package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/hashfsm/internal/logging"
	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/aretw0/hashfsm/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// KeyspaceEvents is the notify-keyspace-events value needed by the hook:
// keyspace channel, hash commands.
const KeyspaceEvents = "Kh"

// Notifier implements ports.Notifier on Redis keyspace notifications
// (PSUBSCRIBE __keyspace@<db>__:*). Messages are delivered to the handler
// sequentially, in arrival order, on a dedicated goroutine.
type Notifier struct {
	client    *backend.Client
	configure bool
	logger    *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NotifierOption configures the Notifier.
type NotifierOption func(*Notifier)

// WithKeyspaceConfig makes Subscribe enable keyspace notifications on the
// server first. Leave it off when the server is configured out of band or
// forbids CONFIG.
func WithKeyspaceConfig(enabled bool) NotifierOption {
	return func(n *Notifier) {
		n.configure = enabled
	}
}

// WithNotifierLogger configures a logger for the Notifier.
func WithNotifierLogger(logger *slog.Logger) NotifierOption {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// NewNotifier creates a Notifier for the client's database.
func NewNotifier(client *backend.Client, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		client: client,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Notifier) channelPrefix() string {
	return fmt.Sprintf("__keyspace@%d__:", n.client.Options().DB)
}

// Subscribe starts delivering keyspace notifications to handler until the
// subscription is closed or ctx is canceled.
func (n *Notifier) Subscribe(ctx context.Context, handler ports.NotificationHandler) (ports.Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("redis: nil notification handler")
	}
	if n.configure {
		if err := n.client.ConfigSet(ctx, "notify-keyspace-events", KeyspaceEvents).Err(); err != nil {
			return nil, fmt.Errorf("failed to enable keyspace notifications: %w", err)
		}
	}

	prefix := n.channelPrefix()
	ps := n.client.PSubscribe(ctx, prefix+"*")
	// Wait for the subscription confirmation so no write is missed afterwards.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to keyspace notifications: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ch := ps.Channel()

	go func() {
		defer close(done)
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				event := msg.Payload
				handler(subCtx, domain.Notification{
					Kind:  domain.KindOf(event),
					Event: event,
					Key:   strings.TrimPrefix(msg.Channel, prefix),
				})
			}
		}
	}()

	n.logger.Debug("Subscribed to keyspace notifications", "pattern", prefix+"*")

	var once sync.Once
	var closeErr error
	return ports.SubscriptionFunc(func() error {
		once.Do(func() {
			cancel()
			closeErr = ps.Close()
			<-done
		})
		return closeErr
	}), nil
}
