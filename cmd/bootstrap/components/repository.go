package components

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"

	"chefslot/internal/infra/db"
	"chefslot/internal/infra/repository"
	"chefslot/internal/usecase/commands"
	"chefslot/internal/usecase/queries"
	"chefslot/internal/usecase/shared"
	"chefslot/internal/worker"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		NewDBTX,
		fx.Annotate(
			shared.NewPgxTxRunner,
			fx.As(new(shared.TxRunner)),
		),
		// Write-side ports
		fx.Annotate(
			repository.NewHoldRepository,
			fx.As(new(commands.HoldRepository)),
		),
		fx.Annotate(
			repository.NewSlotIndexRepository,
			fx.As(new(commands.SlotIndexRepository)),
		),
		fx.Annotate(
			repository.NewBookingRepository,
			fx.As(new(commands.BookingRepository)),
		),
		fx.Annotate(
			repository.NewOfferRepository,
			fx.As(new(commands.OfferRepository)),
		),
		fx.Annotate(
			repository.NewWorkerDirectoryRepository,
			fx.As(new(commands.WorkerDirectory)),
		),
		fx.Annotate(
			repository.NewAssignmentRepository,
			fx.As(new(commands.AssignmentRepository)),
		),
		fx.Annotate(
			repository.NewStationRepository,
			fx.As(new(commands.StationRepository)),
		),
		fx.Annotate(
			repository.NewNotificationRepository,
			fx.As(new(commands.NotificationRepository)),
		),
		// Read-side stores
		fx.Annotate(
			repository.NewHoldRepository,
			fx.As(new(queries.HoldReadStore)),
		),
		fx.Annotate(
			repository.NewBookingRepository,
			fx.As(new(queries.BookingReadStore)),
		),
		fx.Annotate(
			repository.NewSlotIndexRepository,
			fx.As(new(queries.SlotIndexReadStore)),
		),
		// Sweeper ports
		fx.Annotate(
			repository.NewHoldRepository,
			fx.As(new(worker.HoldSweepRepository)),
		),
		fx.Annotate(
			repository.NewSlotIndexRepository,
			fx.As(new(worker.SlotIndexRepository)),
		),
		fx.Annotate(
			repository.NewNotificationRepository,
			fx.As(new(worker.NotificationRepository)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}
