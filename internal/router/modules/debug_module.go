package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/authshop/internal/interface/middleware"
)

// DebugModule exposes Prometheus metrics, rate-limited per IP.
type DebugModule struct {
	Redis *redis.Client
	Allow middleware.AllowFunc
}

func NewDebugModule(rdb *redis.Client, allow middleware.AllowFunc) *DebugModule {
	return &DebugModule{Redis: rdb, Allow: allow}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rl := middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByIP(), m.Allow)
	rg.GET("/debug/metrics", rl, gin.WrapH(promhttp.Handler()))
}
