package container

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/authshop/config"
	"github.com/oksasatya/authshop/internal/application"
	"github.com/oksasatya/authshop/internal/domain/repository"
	"github.com/oksasatya/authshop/internal/interface/middleware"
	"github.com/oksasatya/authshop/pkg/helpers"
)

// Container carries the components built in main to the router. Optional
// members are nil when the backing service is not configured.
type Container struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Accounts repository.AccountRepository
	JWT      *helpers.JWTManager
	Hasher   *helpers.BcryptHasher
	OTP      *helpers.OTPService
	Notifier application.Notifier

	Redis *redis.Client
	Files application.FileStore
	Index application.AccountIndexer
}

// RateLimitRedis returns the client used by rate limiters, or nil when limiting is off.
func (c *Container) RateLimitRedis() *redis.Client {
	if c.Config == nil || !c.Config.RateLimitEnabled {
		return nil
	}
	return c.Redis
}

// RateLimitAllow returns the limiter bypass, or nil when every client is limited.
func (c *Container) RateLimitAllow() middleware.AllowFunc {
	if c.Config == nil || !c.Config.RateLimitBypassPrivate {
		return nil
	}
	return middleware.AllowPrivateIP()
}

// AccountService assembles the account service from the container's parts.
func (c *Container) AccountService() *application.Service {
	svc := application.NewService(c.Accounts, c.Hasher, c.JWT, c.OTP, c.Notifier, c.Logger, application.Settings{
		RegisterOTPTTL:   c.Config.RegisterOTPTTL,
		ResendOTPTTL:     c.Config.ResendOTPTTL,
		ResetTokenTTL:    c.Config.ResetTokenTTL,
		ResetPasswordURL: c.Config.ResetPasswordURL,
	})
	svc.Files = c.Files
	svc.Index = c.Index
	return svc
}
