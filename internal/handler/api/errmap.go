package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chefslot/internal/handler/httperr"
	"chefslot/internal/pkg/errs"
)

// respondError maps the usecase error taxonomy onto HTTP statuses. One table
// for every handler so the wire contract cannot drift per endpoint.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrInvalidSlotKey):
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid slot key", nil)
	case errors.Is(err, errs.ErrHoldNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "Hold not found", nil)
	case errors.Is(err, errs.ErrBookingNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "Booking not found", nil)
	case errors.Is(err, errs.ErrOfferNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "Offer not found", nil)
	case errors.Is(err, errs.ErrSlotUnavailable):
		httperr.AbortWithError(c, http.StatusConflict, err, "Slot unavailable", gin.H{
			"hint": "request alternatives via POST /api/negotiations",
		})
	case errors.Is(err, errs.ErrHoldExpired):
		httperr.AbortWithError(c, http.StatusGone, err, "Hold expired", nil)
	case errors.Is(err, errs.ErrInvalidPhase):
		httperr.AbortWithError(c, http.StatusUnprocessableEntity, err, "Operation not valid in current phase", nil)
	case errors.Is(err, errs.ErrStaleVersion):
		httperr.AbortWithError(c, http.StatusConflict, err, "Concurrent update, retry", nil)
	case errors.Is(err, errs.ErrConstraintViolation):
		httperr.AbortWithError(c, http.StatusConflict, err, "Slot unavailable", nil)
	case errors.Is(err, errs.ErrBookingClosed):
		httperr.AbortWithError(c, http.StatusUnprocessableEntity, err, "Booking is not active", nil)
	case errors.Is(err, errs.ErrNoWorkerAvailable):
		httperr.AbortWithError(c, http.StatusConflict, err, "No worker available, escalated", nil)
	case errors.Is(err, errs.ErrOfferClosed):
		httperr.AbortWithError(c, http.StatusConflict, err, "Offer already answered or expired", nil)
	case errors.Is(err, errs.ErrNoAlternatives):
		httperr.AbortWithError(c, http.StatusNotFound, err, "No alternative slots available", nil)
	default:
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
	}
}
