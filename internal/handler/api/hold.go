package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	reqdto "chefslot/internal/handler/dto/request"
	resdto "chefslot/internal/handler/dto/response"
	"chefslot/internal/handler/httperr"
	"chefslot/internal/handler/middleware"
	"chefslot/internal/pkg/errs"
	"chefslot/internal/usecase/commands"
	"chefslot/internal/usecase/queries"
)

type HoldHandler struct {
	holds commands.HoldCommands
	views queries.HoldQueries
}

func NewHoldHandler(holds commands.HoldCommands, views queries.HoldQueries) *HoldHandler {
	return &HoldHandler{holds: holds, views: views}
}

func (h *HoldHandler) CreateHold(c *gin.Context) {
	customerID, ok := middleware.GetCallerID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var req reqdto.CreateHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	key, err := req.ToSlotKey()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid slot key", nil)
		return
	}

	created, err := h.holds.CreateHold(c.Request.Context(), key, customerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resdto.FromHold(created))
}

// RecordSignature is the e-signature provider's completion webhook.
func (h *HoldHandler) RecordSignature(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	updated, err := h.holds.RecordSignature(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromHold(updated))
}

// RecordPayment is the payment provider's capture webhook. Confirmation and
// booking creation are atomic, so the response carries the booking.
func (h *HoldHandler) RecordPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req reqdto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	b, err := h.holds.RecordPayment(c.Request.Context(), id, req.PriceCents)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resdto.FromBooking(b))
}

func (h *HoldHandler) ReleaseHold(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	reason := c.Query("reason")
	if reason == "" {
		reason = "customer_release"
	}

	if err := h.holds.ReleaseHold(c.Request.Context(), id, reason); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HoldHandler) GetHold(c *gin.Context) {
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

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, errs.Wrap(err, "invalid id"), "Invalid ID format", nil)
		return uuid.Nil, false
	}
	return id, true
}
