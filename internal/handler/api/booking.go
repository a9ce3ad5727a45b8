package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	reqdto "chefslot/internal/handler/dto/request"
	resdto "chefslot/internal/handler/dto/response"
	"chefslot/internal/handler/httperr"
	"chefslot/internal/usecase/commands"
	"chefslot/internal/usecase/queries"
)

type BookingHandler struct {
	bookings    commands.BookingCommands
	assignments commands.AssignmentCommands
	views       queries.BookingQueries
}

func NewBookingHandler(
	bookings commands.BookingCommands,
	assignments commands.AssignmentCommands,
	views queries.BookingQueries,
) *BookingHandler {
	return &BookingHandler{bookings: bookings, assignments: assignments, views: views}
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	view, err := h.views.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RunAssignment executes the optimizer for a booking. Re-running replaces
// the previous pick.
func (h *BookingHandler) RunAssignment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	a, err := h.assignments.AssignWorker(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromAssignment(a))
}

func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req reqdto.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	var res *resdto.BookingResponse
	switch req.Status {
	case "cancelled":
		b, err := h.bookings.Cancel(c.Request.Context(), id, req.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		res = resdto.FromBooking(b)
	case "completed":
		b, err := h.bookings.Complete(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		res = resdto.FromBooking(b)
	case "no_show":
		b, err := h.bookings.MarkNoShow(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		res = resdto.FromBooking(b)
	}
	c.JSON(http.StatusOK, res)
}
