package components

import (
	"go.uber.org/fx"

	"chefslot/internal/pkg/clock"
	"chefslot/internal/usecase/commands"
	"chefslot/internal/usecase/queries"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseCommandsModule,
	usecaseQueriesModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewBookingWriter,
		commands.NewHoldCommands,
		commands.NewBookingCommands,
		commands.NewAssignmentCommands,
		commands.NewNegotiationCommands,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewHoldQueries,
		queries.NewBookingQueries,
		queries.NewAvailabilityQueries,
	),
)
