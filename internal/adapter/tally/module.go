package tally

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/invoicedesk/internal/config"
)

// Module exposes the Tally exporter to fx graph.
var Module = fx.Provide(newExporter)

type exporterParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// newExporter returns nil when no Tally server is configured.
func newExporter(p exporterParams) (Exporter, error) {
	if !p.Config.Tally.Enabled() {
		return nil, nil
	}
	t := p.Config.Tally
	return NewHTTPClient(Options{
		URL:          t.URL,
		Company:      t.Company,
		Ledger:       t.Ledger,
		ContraLedger: t.ContraLedger,
	}, p.Logger)
}
