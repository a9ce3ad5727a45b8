package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chefslot/internal/handler/httperr"
	"chefslot/internal/pkg/errs"
	"chefslot/internal/usecase/queries"
)

type StationHandler struct {
	availability queries.AvailabilityQueries
}

func NewStationHandler(availability queries.AvailabilityQueries) *StationHandler {
	return &StationHandler{availability: availability}
}

// GetAvailability lists the slot grid of one station-day with each slot's
// free/held/booked state.
func (h *StationHandler) GetAvailability(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	date, err := time.Parse(time.DateOnly, c.Query("date"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, errs.Wrap(err, "invalid date"), "Invalid or missing date parameter", nil)
		return
	}

	view, err := h.availability.StationDay(c.Request.Context(), id, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
