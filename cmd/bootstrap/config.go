package bootstrap

import (
	"go.uber.org/fx"

	"chefslot/internal/pkg/config"
)

var ConfigModule = fx.Module("config",
	fx.Provide(
		config.LoadConfig,
		func(cfg config.Config) config.HoldConfig { return cfg.Hold },
		func(cfg config.Config) config.SweepConfig { return cfg.Sweep },
		func(cfg config.Config) config.OfferConfig { return cfg.Offer },
		func(cfg config.Config) config.AssignConfig { return cfg.Assign },
	),
)
