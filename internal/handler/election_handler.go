package handler

import (
	"net/http"

	"eboto/internal/access"
	"eboto/internal/domain/election"
	"eboto/internal/services"
	"eboto/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type ElectionHandler struct {
	service *services.ElectionService
}

func NewElectionHandler(service *services.ElectionService) *ElectionHandler {
	return &ElectionHandler{service: service}
}

// Get serves the election page to anyone CanView admits.
func (h *ElectionHandler) Get(c *gin.Context) {
	view, err := h.service.View(c.Request.Context(), principal(c), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}

	res := httpdto.ElectionPageResponse{
		Election:       httpdto.FromElection(view.Election),
		Positions:      httpdto.MapPositions(view.Positions),
		Candidates:     httpdto.MapCandidates(view.Candidates),
		Partylists:     httpdto.MapPartylists(view.Partylists),
		IsCommissioner: view.IsCommissioner,
		IsVoter:        view.IsVoter,
		HasVoted:       view.HasVoted,
		CanVote:        view.CanVote.Allowed(),
		OpensAt:        view.OpensAt,
		ClosesAt:       view.ClosesAt,
		Ongoing:        view.Ongoing,
		Ended:          view.Ended,
	}
	if view.CanVote.Outcome == access.OutcomeRedirect {
		res.VoteRedirect = string(view.CanVote.Reason)
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(res))
}

func (h *ElectionHandler) Create(c *gin.Context) {
	var req httpdto.CreateElectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	hourEnd := 24
	if req.VotingHourEnd != nil {
		hourEnd = *req.VotingHourEnd
	}
	e, err := h.service.Create(c.Request.Context(), principal(c), services.CreateElectionInput{
		Name:            req.Name,
		Slug:            req.Slug,
		Description:     req.Description,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		VotingHourStart: req.VotingHourStart,
		VotingHourEnd:   hourEnd,
		Publicity:       election.Publicity(req.Publicity),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromElection(e)))
}

func (h *ElectionHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req httpdto.UpdateElectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	in := services.UpdateElectionInput{
		Name:            req.Name,
		Slug:            req.Slug,
		Description:     req.Description,
		LogoKey:         req.LogoKey,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		VotingHourStart: req.VotingHourStart,
		VotingHourEnd:   req.VotingHourEnd,
	}
	if req.Publicity != nil {
		p := election.Publicity(*req.Publicity)
		in.Publicity = &p
	}
	e, err := h.service.Update(c.Request.Context(), principal(c), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromElection(e)))
}

func (h *ElectionHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), principal(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": true}))
}
