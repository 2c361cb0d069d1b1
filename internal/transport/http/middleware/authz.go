package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
)

// RequireCapability gates a route with a single capability. ownerParam
// names the path parameter holding the owning account id, for capabilities
// built with OwnerOr; pass "" when ownership does not apply.
//
// Fine-grained checks that need the target resource loaded first (for
// example enrollment ownership) live in the usecases instead; this
// middleware covers the gates decidable from the route alone.
func RequireCapability(capability domain.Capability, ownerParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := ""
		if ownerParam != "" {
			ownerID = c.Param(ownerParam)
		}

		if err := capability.Authorize(GetIdentity(c), ownerID); err != nil {
			status := http.StatusForbidden
			message := "Insufficient permissions"
			if errors.Is(err, domain.ErrUnauthenticated) {
				status = http.StatusUnauthorized
				message = "Authentication required"
			}

			c.AbortWithStatusJSON(status, gin.H{
				"status":   status,
				"error":    http.StatusText(status),
				"message":  message,
				"path":     c.Request.URL.Path,
				"trace_id": GetTraceID(c),
			})
			return
		}

		c.Next()
	}
}
