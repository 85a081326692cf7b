package handler

import (
	"errors"
	"net/http"

	"eboto/internal/access"
	"eboto/internal/services"
	"eboto/internal/transport/httpdto"
	eboto_errors "eboto/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// writeError renders a service error. Ballot rejections carry the failing
// position and candidate; redirects carry the reason for the frontend.
func writeError(c *gin.Context, err error) {
	status := services.HTTPStatus(err)

	if be, ok := eboto_errors.AsBallotError(err); ok {
		c.JSON(status, httpdto.FromBallotError(be))
		return
	}

	var redirect *access.RedirectError
	if errors.As(err, &redirect) {
		c.JSON(status, httpdto.RedirectResponse{
			Success: false,
			Error:   err.Error(),
			Code:    httpdto.ErrorCode(status),
			Reason:  string(redirect.Reason),
		})
		return
	}

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		// logged by the error middleware
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(status, httpdto.NewErrorResponse(msg, httpdto.ErrorCode(status)))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(msg, "INVALID_REQUEST"))
}

func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func principal(c *gin.Context) access.Principal {
	return services.PrincipalFromContext(c.Request.Context())
}
