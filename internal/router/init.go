package router

import (
	"github.com/oksasatya/authshop/internal/container"
	handlers "github.com/oksasatya/authshop/internal/interface/http"
	"github.com/oksasatya/authshop/internal/router/modules"
)

// InitModules builds every feature module from c and adds it to r.
// Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	svc := c.AccountService()
	h := handlers.NewAccountHandler(svc, c.Logger, c.Config.CookieDomain, c.Config.CookieSecure, c.Config.PublicBaseURL)

	r.Add(modules.NewAccountModule(h, svc, c.RateLimitRedis(), c.RateLimitAllow()))
	if c.Config.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(c.RateLimitRedis(), c.RateLimitAllow()))
	}
}
