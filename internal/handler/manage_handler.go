package handler

import (
	"net/http"

	"eboto/internal/services"
	"eboto/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// ManageHandler serves the commissioner dashboard. Every route requires the
// caller to be a commissioner of :id; anyone else sees 404.
type ManageHandler struct {
	elections *services.ElectionService
	exports   *services.ExportService
}

func NewManageHandler(elections *services.ElectionService, exports *services.ExportService) *ManageHandler {
	return &ManageHandler{elections: elections, exports: exports}
}

func (h *ManageHandler) AddPosition(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req httpdto.PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	pos, err := h.elections.AddPosition(c.Request.Context(), principal(c), id, services.PositionInput{
		Name:        req.Name,
		Description: req.Description,
		Min:         req.Min,
		Max:         req.Max,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromPosition(pos)))
}

func (h *ManageHandler) UpdatePosition(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	positionID, ok := parseID(c, "positionId")
	if !ok {
		return
	}
	var req httpdto.UpdatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	pos, err := h.elections.UpdatePosition(c.Request.Context(), principal(c), id, positionID, services.UpdatePositionInput{
		PositionInput: services.PositionInput{
			Name:        req.Name,
			Description: req.Description,
			Min:         req.Min,
			Max:         req.Max,
		},
		Order: req.Order,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromPosition(pos)))
}

func (h *ManageHandler) DeletePosition(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	positionID, ok := parseID(c, "positionId")
	if !ok {
		return
	}
	if err := h.elections.DeletePosition(c.Request.Context(), principal(c), id, positionID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": true}))
}

func (h *ManageHandler) AddPartylist(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req httpdto.PartylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	pl, err := h.elections.AddPartylist(c.Request.Context(), principal(c), id, services.PartylistInput{
		Name:    req.Name,
		Acronym: req.Acronym,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromPartylist(pl)))
}

func (h *ManageHandler) ListPartylists(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	items, err := h.elections.ListPartylists(c.Request.Context(), principal(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.MapPartylists(items)))
}

func candidateInput(req httpdto.CandidateRequest) services.CandidateInput {
	return services.CandidateInput{
		PositionID:  req.PositionID,
		PartylistID: req.PartylistID,
		Slug:        req.Slug,
		FirstName:   req.FirstName,
		MiddleName:  req.MiddleName,
		LastName:    req.LastName,
		ImageKey:    req.ImageKey,
		Platform:    req.Platform,
	}
}

func (h *ManageHandler) AddCandidate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req httpdto.CandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	cand, err := h.elections.AddCandidate(c.Request.Context(), principal(c), id, candidateInput(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromCandidate(cand)))
}

func (h *ManageHandler) UpdateCandidate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	candidateID, ok := parseID(c, "candidateId")
	if !ok {
		return
	}
	var req httpdto.CandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	cand, err := h.elections.UpdateCandidate(c.Request.Context(), principal(c), id, candidateID, candidateInput(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromCandidate(cand)))
}

func (h *ManageHandler) DeleteCandidate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	candidateID, ok := parseID(c, "candidateId")
	if !ok {
		return
	}
	if err := h.elections.DeleteCandidate(c.Request.Context(), principal(c), id, candidateID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": true}))
}

func (h *ManageHandler) AddVoter(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req httpdto.VoterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	v, err := h.elections.AddVoter(c.Request.Context(), principal(c), id, services.VoterInput{
		Email:  req.Email,
		UserID: req.UserID,
		Field:  req.Field,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromVoter(v)))
}

func (h *ManageHandler) ListVoters(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	items, err := h.elections.ListVoters(c.Request.Context(), principal(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	res := httpdto.ListVotersResponse{Voters: make([]httpdto.VoterDTO, 0, len(items)), Total: len(items)}
	for _, v := range items {
		if v.HasVoted() {
			res.Voted++
		}
		res.Voters = append(res.Voters, httpdto.FromVoter(v))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(res))
}

func (h *ManageHandler) RemoveVoter(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	voterID, ok := parseID(c, "voterId")
	if !ok {
		return
	}
	if err := h.elections.RemoveVoter(c.Request.Context(), principal(c), id, voterID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": true}))
}

func (h *ManageHandler) AddVoterField(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req httpdto.VoterFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	f, err := h.elections.AddVoterField(c.Request.Context(), principal(c), id, services.VoterFieldInput{Name: req.Name})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.VoterFieldDTO{ID: f.ID.String(), Name: f.Name}))
}

func (h *ManageHandler) AddCommissioner(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req httpdto.CommissionerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	cm, err := h.elections.AddCommissioner(c.Request.Context(), principal(c), id, services.CommissionerInput{
		UserID: req.UserID,
		Email:  req.Email,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromCommissioner(cm)))
}

func (h *ManageHandler) PresignLogo(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req httpdto.LogoUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	up, err := h.elections.PresignLogo(c.Request.Context(), principal(c), id, req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(up))
}

func (h *ManageHandler) Export(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	res, err := h.exports.Export(c.Request.Context(), principal(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(res))
}
