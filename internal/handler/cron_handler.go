package handler

import (
	"net/http"
	"time"

	"eboto/internal/services"
	"eboto/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// CronHandler is called by the external hourly scheduler. The signature is
// checked by middleware before it runs.
type CronHandler struct {
	lifecycle *services.LifecycleService
	clock     func() time.Time
}

func NewCronHandler(lifecycle *services.LifecycleService) *CronHandler {
	return &CronHandler{lifecycle: lifecycle, clock: time.Now}
}

func (h *CronHandler) Hourly(c *gin.Context) {
	report, err := h.lifecycle.RunHourly(c.Request.Context(), h.clock())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(report))
}
