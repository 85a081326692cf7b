package middleware

import (
	"eboto/internal/services"
	"eboto/internal/transport/httpdto"
	"eboto/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders errors attached with c.Error when the handler did
// not write a response itself.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := services.HTTPStatus(err)
		if status >= 500 {
			logger.OrGlobal(l).WithContext(c.Request.Context()).Logger.Error("request error", zap.Error(err))
		}
		if c.Writer.Written() {
			return
		}
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), httpdto.ErrorCode(status)))
	}
}
