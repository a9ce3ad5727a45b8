package components

import (
	"go.uber.org/fx"

	"chefslot/internal/handler"
	"chefslot/internal/handler/api"
	"chefslot/internal/handler/middleware"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewHoldHandler,
		api.NewBookingHandler,
		api.NewNegotiationHandler,
		api.NewStationHandler,
		middleware.NewAuthMiddleware,
	),
	fx.Invoke(handler.NewRouter),
)
