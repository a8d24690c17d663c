// Package storage selects the record store driver and exposes its repositories.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/invoicedesk/internal/config"
	"github.com/polkiloo/invoicedesk/internal/domain/repository"
	"github.com/polkiloo/invoicedesk/internal/storage/firestore"
	"github.com/polkiloo/invoicedesk/internal/storage/memory"
	"github.com/polkiloo/invoicedesk/internal/storage/postgres"
)

// Module wires the configured record store and repository adapters.
var Module = fx.Options(
	fx.Provide(newFactory),
	fx.Provide(
		func(f repository.Factory) repository.AccountRepository { return f.Accounts() },
		func(f repository.Factory) repository.ProfileRepository { return f.Profiles() },
		func(f repository.Factory) repository.InvoiceRepository { return f.Invoices() },
		func(f repository.Factory) repository.SubscriptionRepository { return f.Subscriptions() },
	),
	fx.Invoke(registerLifecycle),
)

type factoryParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func newFactory(p factoryParams) (repository.Factory, error) {
	return Open(p.Ctx, p.Config, p.Logger)
}

// Open connects the driver named by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Factory, error) {
	logger.Info("record store", slog.String("driver", cfg.StoreDriver))
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURI, logger)
	case config.DriverFirestore:
		return firestore.New(ctx, firestore.Options{
			ProjectID:       cfg.Firebase.ProjectID,
			CredentialsFile: cfg.Firebase.CredentialsFile,
			AppID:           cfg.AppID,
		}, logger)
	case config.DriverMemory, "":
		return memory.New(logger), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func registerLifecycle(lc fx.Lifecycle, factory repository.Factory) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			factory.Close()
			return nil
		},
	})
}
