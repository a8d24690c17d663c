package extractor

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/invoicedesk/internal/config"
)

// Module exposes extraction client implementation to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// newClient returns nil when extraction is not configured.
func newClient(p clientParams) (Client, error) {
	if !p.Config.ExtractionEnabled() {
		return nil, nil
	}
	return NewHTTPClient(p.Config.ExtractorURL, p.Logger)
}
