package container

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/authshop/config"
	"github.com/oksasatya/authshop/internal/interface/middleware"
)

func clientAt(ip string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(middleware.CtxRealIPKey, ip)
	return c
}

func TestRateLimitAllow(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c := &Container{Config: &config.Config{RateLimitEnabled: true}}
	assert.Nil(t, c.RateLimitAllow())

	c.Config.RateLimitBypassPrivate = true
	allow := c.RateLimitAllow()
	if assert.NotNil(t, allow) {
		assert.True(t, allow(clientAt("10.1.2.3")))
		assert.True(t, allow(clientAt("127.0.0.1")))
		assert.False(t, allow(clientAt("203.0.113.7")))
	}
}

func TestRateLimitRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer func() { _ = rdb.Close() }()

	c := &Container{Config: &config.Config{}, Redis: rdb}
	assert.Nil(t, c.RateLimitRedis())

	c.Config.RateLimitEnabled = true
	assert.Same(t, rdb, c.RateLimitRedis())
}
