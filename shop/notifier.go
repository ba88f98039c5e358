package shop

import (
	"context"

	"github.com/hupe1980/shopmesh/logging"
)

// Notification methods accepted by notify_customer.
const (
	MethodEmail = "email"
	MethodPhone = "phone"
)

// Notification is a message dispatched to a customer.
type Notification struct {
	UserID  int
	Method  string
	Address string
}

// Notifier delivers customer notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier "delivers" notifications by logging them.
type LogNotifier struct {
	Logger logging.Logger
}

// Notify logs the notification.
func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	logging.OrNoOp(l.Logger).Info("shop.notify", "user_id", n.UserID, "method", n.Method, "address", n.Address)
	return nil
}
