package ports

import (
	"context"

	"github.com/aretw0/hashfsm/pkg/domain"
)

// NotificationHandler reacts to a host write notification.
// Handlers run to completion and must not return errors to the host.
type NotificationHandler func(ctx context.Context, n domain.Notification)

// Subscription is an active notifier registration.
type Subscription interface {
	Close() error
}

// Notifier delivers write notifications for mutations the engine did not
// necessarily initiate.
type Notifier interface {
	// Subscribe registers handler. Notifications are delivered sequentially,
	// in the order the host emitted them, until the subscription is closed.
	Subscribe(ctx context.Context, handler NotificationHandler) (Subscription, error)
}

// SubscriptionFunc adapts a function to the Subscription interface.
type SubscriptionFunc func() error

func (f SubscriptionFunc) Close() error { return f() }
