package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"eboto/internal/services"
	"eboto/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

const SchedulerSignatureHeader = "X-Scheduler-Signature"

const maxCronBody = 64 << 10

// SchedulerSignatureMiddleware verifies the cron trigger before any
// processing. The body is restored for the handler.
func SchedulerSignatureMiddleware(verifier *services.SchedulerVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCronBody))
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("unreadable body", "INVALID_REQUEST"))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		token := c.GetHeader(SchedulerSignatureHeader)
		if err := verifier.Verify(token, c.Request.URL.Path, body, time.Now()); err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("invalid scheduler signature", "UNAUTHORIZED"))
			c.Abort()
			return
		}
		c.Next()
	}
}
