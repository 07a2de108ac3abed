/*
notify.go - Best-effort notification emission

Notifications are downstream effects, not part of the transactional core:
a delivery failure is logged and never rolls back the grant or decision
that produced it. Under retry a notification may duplicate; grants cannot.
*/
package loyalty

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// Notifier delivers account notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NewNotification builds a notification with a fresh ID.
func NewNotification(accountID AccountID, kind, message string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// StoreNotifier persists notifications so the customer UI can list them.
type StoreNotifier struct {
	Store Store
}

func (sn *StoreNotifier) Notify(ctx context.Context, n Notification) error {
	return sn.Store.AppendNotification(ctx, n)
}

// LogNotifier writes notifications to the process log. Used in dev and as
// a harmless default in tests.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	log.Printf("notify %s [%s]: %s", n.AccountID, n.Kind, n.Message)
	return nil
}
