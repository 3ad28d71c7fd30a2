package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/tutorhub-user-service/internal/container"
	handlers "github.com/oksasatya/tutorhub-user-service/internal/interface/http"
	"github.com/oksasatya/tutorhub-user-service/internal/interface/middleware"
)

// UserModule wires the user handlers under /api/users.
// Every route is rate limited per client IP; the role route additionally requires
// the gateway actor headers and is limited per actor.
type UserModule struct {
	Handler *handlers.UserHandler
}

func NewUserModule(h *handlers.UserHandler) *UserModule {
	return &UserModule{Handler: h}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	perMinute := 60
	if cfg := container.GetConfig(); cfg != nil && cfg.RateLimitPerMinute > 0 {
		perMinute = cfg.RateLimitPerMinute
	}

	registerLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	actorLimiter := middleware.RateLimit(rdb, perMinute, time.Minute, middleware.KeyByActor(), nil)

	users := rg.Group("/users")
	users.Use(middleware.RateLimit(rdb, perMinute, time.Minute, middleware.KeyByIP(), nil))
	{
		users.POST("", registerLimiter, m.Handler.Register)
		users.GET("/search", m.Handler.Search)
		users.GET("/:id", m.Handler.Get)
		users.POST("/:id/activate", m.Handler.Activate)
		users.POST("/:id/suspend", m.Handler.Suspend)
		users.POST("/:id/reinstate", m.Handler.Reinstate)
		users.POST("/:id/deactivate", m.Handler.Deactivate)
		users.PUT("/:id/profile", m.Handler.UpdateProfile)
		users.PUT("/:id/preferences", m.Handler.UpdatePreferences)
		users.PUT("/:id/email", m.Handler.ChangeEmail)
		users.POST("/:id/role", middleware.Actor(), actorLimiter, m.Handler.ChangeRole)
		users.POST("/:id/logins", m.Handler.RecordLogin)
		users.POST("/:id/reputation", m.Handler.EvaluateReputation)
		users.GET("/:id/reputation", m.Handler.CachedReputation)
	}
}
