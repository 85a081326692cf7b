package handler

import (
	"net/http"

	"eboto/internal/services"
	"eboto/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type ResultHandler struct {
	service *services.TallyService
}

func NewResultHandler(service *services.TallyService) *ResultHandler {
	return &ResultHandler{service: service}
}

// Realtime returns the live tally, anonymized until the election ends.
func (h *ResultHandler) Realtime(c *gin.Context) {
	view, err := h.service.Realtime(c.Request.Context(), principal(c), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(view))
}

// Result returns the frozen result; 404 until the election has been frozen.
func (h *ResultHandler) Result(c *gin.Context) {
	view, err := h.service.GetResult(c.Request.Context(), principal(c), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(view))
}
