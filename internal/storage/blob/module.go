package blob

import "go.uber.org/fx"

// Module provides the blob Store selected by configuration.
var Module = fx.Provide(New)
