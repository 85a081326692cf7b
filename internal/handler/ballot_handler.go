package handler

import (
	"net/http"

	"eboto/internal/services"
	"eboto/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type BallotHandler struct {
	elections *services.ElectionService
	ballots   *services.BallotService
}

func NewBallotHandler(elections *services.ElectionService, ballots *services.BallotService) *BallotHandler {
	return &BallotHandler{elections: elections, ballots: ballots}
}

// Form returns the ballot for a voter who may vote now.
func (h *BallotHandler) Form(c *gin.Context) {
	view, err := h.elections.BallotForm(c.Request.Context(), principal(c), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.BallotFormResponse{
		Election:   httpdto.FromElection(view.Election),
		Positions:  httpdto.MapPositions(view.Positions),
		Candidates: httpdto.MapCandidates(view.Candidates),
		Partylists: httpdto.MapPartylists(view.Partylists),
	}))
}

func (h *BallotHandler) Cast(c *gin.Context) {
	var req httpdto.CastBallotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid ballot")
		return
	}

	receipt, err := h.ballots.CastForPrincipal(c.Request.Context(), principal(c), c.Param("slug"), req.Selections)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(receipt))
}
