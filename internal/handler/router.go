package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chefslot/internal/handler/api"
	"chefslot/internal/handler/middleware"
	"chefslot/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(
	engine *gin.Engine,
	cfg config.Config,
	holdHandler *api.HoldHandler,
	bookingHandler *api.BookingHandler,
	negotiationHandler *api.NegotiationHandler,
	stationHandler *api.StationHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, holdHandler, bookingHandler, negotiationHandler, stationHandler, authMiddleware)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(nil, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(
	engine *gin.Engine,
	holdHandler *api.HoldHandler,
	bookingHandler *api.BookingHandler,
	negotiationHandler *api.NegotiationHandler,
	stationHandler *api.StationHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	engine.GET("/health", healthCheck)

	apiGroup := engine.Group("/api")
	apiGroup.Use(authMiddleware.RequireAuth())
	{
		holds := apiGroup.Group("/holds")
		{
			addRoutes(holds, []route{
				{Method: http.MethodPost, Path: "", Handler: holdHandler.CreateHold},
				{Method: http.MethodGet, Path: "/:id", Handler: holdHandler.GetHold},
				{Method: http.MethodPost, Path: "/:id/signature", Handler: holdHandler.RecordSignature},
				{Method: http.MethodPost, Path: "/:id/payment", Handler: holdHandler.RecordPayment},
				{Method: http.MethodDelete, Path: "/:id", Handler: holdHandler.ReleaseHold},
			})
		}

		bookings := apiGroup.Group("/bookings")
		{
			addRoutes(bookings, []route{
				{Method: http.MethodGet, Path: "/:id", Handler: bookingHandler.GetBooking},
				{Method: http.MethodPost, Path: "/:id/assignment", Handler: bookingHandler.RunAssignment,
					Mw: []gin.HandlerFunc{authMiddleware.RequireRole(middleware.RoleOps)}},
				{Method: http.MethodPost, Path: "/:id/status", Handler: bookingHandler.UpdateStatus},
			})
		}

		negotiations := apiGroup.Group("/negotiations")
		{
			addRoutes(negotiations, []route{
				{Method: http.MethodPost, Path: "", Handler: negotiationHandler.ProposeAlternatives},
				{Method: http.MethodPost, Path: "/:id/response", Handler: negotiationHandler.RespondToOffer},
			})
		}

		stations := apiGroup.Group("/stations")
		{
			addRoutes(stations, []route{
				{Method: http.MethodGet, Path: "/:id/availability", Handler: stationHandler.GetAvailability},
			})
		}
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
