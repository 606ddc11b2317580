package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/authshop/internal/application"
	"github.com/oksasatya/authshop/internal/domain/entity"
	"github.com/oksasatya/authshop/pkg/response"
)

const (
	CtxAccountKey = "account"
	CtxUserIDKey  = "userID"
)

// TokenResolver turns a bearer token into the profile it belongs to.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (entity.Profile, error)
}

// Auth requires "Authorization: Bearer <token>" naming an existing account.
// On success the profile is stored under CtxAccountKey and its id under CtxUserIDKey.
func Auth(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		p, err := resolver.ResolveToken(c.Request.Context(), token)
		if err != nil {
			msg := "Not authorized, token failed"
			var ae *application.Error
			if errors.As(err, &ae) && ae.Kind == application.KindUnauthorized {
				msg = ae.Message
			}
			response.Abort(c, http.StatusUnauthorized, msg)
			return
		}
		c.Set(CtxAccountKey, p)
		c.Set(CtxUserIDKey, p.ID)
		c.Next()
	}
}

// CurrentAccount returns the profile stored by Auth.
func CurrentAccount(c *gin.Context) (entity.Profile, bool) {
	v, ok := c.Get(CtxAccountKey)
	if !ok {
		return entity.Profile{}, false
	}
	p, ok := v.(entity.Profile)
	return p, ok
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
