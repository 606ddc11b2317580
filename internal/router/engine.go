package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/authshop/internal/container"
	"github.com/oksasatya/authshop/internal/interface/middleware"
	"github.com/oksasatya/authshop/pkg/response"
)

// New builds the HTTP engine: global middleware, static uploads and all modules.
func New(c *container.Container) *gin.Engine {
	cfg := c.Config
	engine := gin.New()

	engine.Use(middleware.RequestIDMiddleware(), middleware.RealIP())
	if cfg.HTTPLogEnabled {
		engine.Use(gin.Logger())
	}
	engine.Use(gin.CustomRecovery(func(ctx *gin.Context, rec any) {
		c.Logger.WithField("request_id", ctx.GetString("request_id")).
			WithField("panic", rec).
			Error("panic recovered")
		response.Abort(ctx, http.StatusInternalServerError, "Internal server error")
	}))
	origins := cfg.CORSOrigins()
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if strings.EqualFold(cfg.StorageDriver, "local") && cfg.UploadDir != "" {
		engine.Static("/uploads", cfg.UploadDir)
	}

	engine.NoRoute(func(ctx *gin.Context) {
		response.Error(ctx, http.StatusNotFound, "Not Found", nil)
	})

	reg := NewRegistry(engine, "")
	InitModules(reg, c)
	reg.RegisterAll()
	return engine
}
