package middleware

import (
	"net/http"
	"strings"

	"eboto/internal/access"
	"eboto/internal/services"
	"eboto/internal/transport/httpdto"
	"eboto/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware requires a valid bearer token.
func AuthMiddleware(service *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := service.Principal(extractBearer(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}
		setPrincipal(c, p)
		c.Next()
	}
}

// OptionalAuthMiddleware lets anonymous requests through. A token that is
// present but invalid is still rejected.
func OptionalAuthMiddleware(service *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		if token == "" {
			setPrincipal(c, access.Anonymous())
			c.Next()
			return
		}
		p, err := service.Principal(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}
		setPrincipal(c, p)
		c.Next()
	}
}

func setPrincipal(c *gin.Context, p access.Principal) {
	ctx := services.WithPrincipal(c.Request.Context(), p)
	if p.Authenticated {
		ctx = logger.WithUserID(ctx, p.UserID.String())
	}
	c.Request = c.Request.WithContext(ctx)
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
