package razorpay

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/invoicedesk/internal/config"
)

// Module exposes the payment client to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// newClient returns nil when payment credentials are not configured.
func newClient(p clientParams) (Client, error) {
	rp := p.Config.Razorpay
	if rp.KeyID == "" {
		p.Logger.Info("payments disabled: razorpay key id is empty")
		return nil, nil
	}
	return NewHTTPClient(Options{
		APIURL:    rp.APIURL,
		KeyID:     rp.KeyID,
		KeySecret: rp.KeySecret,
		PlanID:    rp.PlanID,
	}, p.Logger)
}
