package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	reqdto "chefslot/internal/handler/dto/request"
	resdto "chefslot/internal/handler/dto/response"
	"chefslot/internal/handler/httperr"
	"chefslot/internal/handler/middleware"
	"chefslot/internal/usecase/commands"
)

type NegotiationHandler struct {
	negotiations commands.NegotiationCommands
}

func NewNegotiationHandler(negotiations commands.NegotiationCommands) *NegotiationHandler {
	return &NegotiationHandler{negotiations: negotiations}
}

func (h *NegotiationHandler) ProposeAlternatives(c *gin.Context) {
	customerID, ok := middleware.GetCallerID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var req reqdto.ProposeAlternativesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	key, err := req.ToSlotKey()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid slot key", nil)
		return
	}

	offers, err := h.negotiations.ProposeAlternatives(c.Request.Context(), customerID, key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resdto.FromOffers(offers))
}

func (h *NegotiationHandler) RespondToOffer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req reqdto.OfferResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	offer, createdHold, err := h.negotiations.RespondToOffer(c.Request.Context(), id, req.Action == "accept")
	if err != nil {
		respondError(c, err)
		return
	}

	result := resdto.RespondResult{Offer: resdto.FromOffer(offer)}
	if createdHold != nil {
		result.Hold = resdto.FromHold(createdHold)
	}
	c.JSON(http.StatusOK, result)
}
