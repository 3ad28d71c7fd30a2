package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	vo "github.com/oksasatya/tutorhub-user-service/internal/domain/valueobject"
	"github.com/oksasatya/tutorhub-user-service/pkg/response"
)

// Actor headers are set by the API gateway after it has authenticated the caller.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"

	ctxActorID   = "actorID"
	ctxActorRole = "actorRole"
)

// Actor requires the gateway identity headers and stores them in the Gin context.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if _, err := uuid.Parse(id); err != nil {
			response.Error[any](c, http.StatusUnauthorized, "missing or invalid actor id", nil)
			return
		}
		role, err := vo.ParseRole(strings.TrimSpace(c.GetHeader(HeaderActorRole)))
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "missing or invalid actor role", nil)
			return
		}
		c.Set(ctxActorID, id)
		c.Set(ctxActorRole, role)
		c.Next()
	}
}

// ActorFrom returns the actor stored by Actor.
func ActorFrom(c *gin.Context) (string, vo.Role, bool) {
	id := c.GetString(ctxActorID)
	v, ok := c.Get(ctxActorRole)
	if !ok || id == "" {
		return "", "", false
	}
	role, ok := v.(vo.Role)
	return id, role, ok
}
