package repository

import "context"

// Factory describes access to different domain repositories.
type Factory interface {
	Accounts() AccountRepository
	Profiles() ProfileRepository
	Invoices() InvoiceRepository
	Subscriptions() SubscriptionRepository
	HealthCheck(ctx context.Context) error
	Close()
}
