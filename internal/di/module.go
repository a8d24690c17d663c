package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/invoicedesk/internal/adapter/extractor"
	"github.com/polkiloo/invoicedesk/internal/adapter/razorpay"
	"github.com/polkiloo/invoicedesk/internal/adapter/tally"
	"github.com/polkiloo/invoicedesk/internal/app"
	"github.com/polkiloo/invoicedesk/internal/config"
	"github.com/polkiloo/invoicedesk/internal/logger"
	"github.com/polkiloo/invoicedesk/internal/metrics"
	"github.com/polkiloo/invoicedesk/internal/pkg/auth"
	"github.com/polkiloo/invoicedesk/internal/server/http/handlers"
	"github.com/polkiloo/invoicedesk/internal/server/http/router"
	"github.com/polkiloo/invoicedesk/internal/storage"
	"github.com/polkiloo/invoicedesk/internal/storage/blob"
	"github.com/polkiloo/invoicedesk/internal/usecase"
)

// Module assembles the invoicedesk server graph. opts are appended last so
// tests can fx.Replace any dependency.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		metrics.Module,
		auth.Module,
		storage.Module,
		blob.Module,
		extractor.Module,
		razorpay.Module,
		tally.Module,
		usecase.Module,
		fx.Provide(func(f *app.InvoiceDeskFacade) handlers.InvoiceDeskFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
