package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oksasatya/tutorhub-user-service/internal/container"
	"github.com/oksasatya/tutorhub-user-service/internal/interface/middleware"
)

type DebugModule struct {
	Gatherer prometheus.Gatherer
}

func NewDebugModule(g prometheus.Gatherer) *DebugModule { return &DebugModule{Gatherer: g} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// Prometheus scrape endpoint; scrapers on private networks skip the limiter
	rl := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/debug/metrics", rl, gin.WrapH(promhttp.HandlerFor(m.Gatherer, promhttp.HandlerOpts{})))
}
