package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/authshop/internal/interface/http"
	"github.com/oksasatya/authshop/internal/interface/middleware"
)

// AccountModule mounts the account routes under /users.
// Public: register, OTP, login/logout, password reset and check-email.
// Protected (bearer): change-password, logged-user, search.
type AccountModule struct {
	Handler  *handlers.AccountHandler
	Resolver middleware.TokenResolver
	Redis    *redis.Client
	Allow    middleware.AllowFunc
}

func NewAccountModule(h *handlers.AccountHandler, resolver middleware.TokenResolver, rdb *redis.Client, allow middleware.AllowFunc) *AccountModule {
	return &AccountModule{Handler: h, Resolver: resolver, Redis: rdb, Allow: allow}
}

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	perIP := func(max int) gin.HandlerFunc {
		return middleware.RateLimit(m.Redis, max, time.Minute, middleware.KeyByIPAndPath(), m.Allow)
	}

	users := rg.Group("/users")
	users.POST("/register", perIP(10), m.Handler.Register)
	users.POST("/verify-otp", perIP(30), m.Handler.VerifyOTP)
	users.POST("/resend-otp", perIP(5), m.Handler.ResendOTP)
	users.POST("/login", perIP(10), m.Handler.Login)
	users.POST("/logout", m.Handler.Logout)
	users.POST("/send-reset-password-email", perIP(5), m.Handler.SendResetEmail)
	users.POST("/password-reset/:id/:token", perIP(30), m.Handler.ResetPasswordByToken)
	users.POST("/reset-password-direct", perIP(5), m.Handler.ResetPasswordDirect)
	users.POST("/check-email", perIP(30), m.Handler.CheckEmail)
	users.POST("/change-password-email", perIP(10), m.Handler.ChangePasswordByEmail)

	auth := users.Group("")
	auth.Use(
		middleware.Auth(m.Resolver),
		middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), m.Allow),
	)
	{
		auth.POST("/change-password", m.Handler.ChangePassword)
		auth.GET("/logged-user", m.Handler.LoggedUser)
		auth.GET("/search", m.Handler.Search)
	}
}
