/*
service.go - Service construction and shared plumbing

PURPOSE:
  The Service is the process-wide entry point for every loyalty operation.
  It is constructed once with an explicit store handle and holds no mutable
  state of its own - all shared state lives behind the store's atomic
  primitives, which keeps the service safe under concurrent request
  handlers and trivially testable with a fake store.
*/
package loyalty

import (
	"context"
	"log"
	"time"
)

// Service exposes the loyalty operations: awards, achievement evaluation,
// tier reconciliation, and the redemption workflow. Fields are set at
// construction and never mutated afterwards.
type Service struct {
	Store    TxStore
	Notifier Notifier
	Catalog  []AchievementDefinition
	EarnRate EarnRate
}

// NewService builds a Service with the default achievement catalog, earn
// rate, and a store-backed notifier.
func NewService(store TxStore) *Service {
	return &Service{
		Store:    store,
		Notifier: &StoreNotifier{Store: store},
		Catalog:  DefaultCatalog,
		EarnRate: DefaultEarnRate,
	}
}

// CreateAccount registers a new customer at zero balance, bronze tier.
func (s *Service) CreateAccount(ctx context.Context, name string) (*Account, error) {
	now := time.Now().UTC()
	acct := Account{
		ID:        NewAccountID(),
		Name:      name,
		Tier:      TierBronze,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.CreateAccount(ctx, acct); err != nil {
		return nil, storeFailure("create account", err)
	}
	return &acct, nil
}

// notify emits a best-effort notification. Failures are logged and never
// propagate into the calling operation.
func (s *Service) notify(ctx context.Context, accountID AccountID, kind, message string) {
	if s.Notifier == nil {
		return
	}
	n := NewNotification(accountID, kind, message)
	if err := s.Notifier.Notify(ctx, n); err != nil {
		log.Printf("loyalty: notification %s for account %s failed: %v", kind, accountID, err)
	}
}
