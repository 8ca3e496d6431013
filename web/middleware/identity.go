package middleware

import (
	"context"
	"net/http"

	"github.com/authgate/authgate/logger"
	"github.com/authgate/authgate/web/entity"
	"github.com/authgate/authgate/web/service"
	"github.com/authgate/authgate/web/session"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const identityKey = "IDENTITY"

type identityCtxKey struct{}

// IdentityResolver turns the session state into the request identity.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, st *session.State) (service.Identity, error)
}

// FailureHandler writes the response for a request whose stores are unavailable.
type FailureHandler func(c *gin.Context, err error)

// IdentityGate resolves the identity of every request and exposes it through
// CurrentIdentity and IdentityFromContext. It never rejects a request on its own;
// only a store failure aborts the chain through onFailure.
// It must run after sessions.Sessions with the same store and cookie name.
func IdentityGate(store sessions.Store, cookieName string, resolver IdentityResolver, onFailure FailureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		// The session is loaded once per request; sessions.Default reuses it.
		if _, err := store.Get(c.Request, cookieName); err != nil {
			logger.Warning("load session:", err)
			onFailure(c, service.ErrStoreUnavailable)
			c.Abort()
			return
		}

		st := session.Load(c)
		identity, err := resolver.ResolveIdentity(c.Request.Context(), st)
		if err != nil {
			logger.Warning("resolve identity:", err)
			onFailure(c, err)
			c.Abort()
			return
		}

		c.Set(identityKey, identity)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), identityCtxKey{}, identity))
		c.Next()
	}
}

// CurrentIdentity returns the identity resolved for this request; anonymous when the
// gate did not run.
func CurrentIdentity(c *gin.Context) service.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(service.Identity); ok {
			return identity
		}
	}
	return service.Identity{}
}

// IdentityFromContext returns the identity stored by IdentityGate in a request context.
func IdentityFromContext(ctx context.Context) (service.Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey{}).(service.Identity)
	return identity, ok
}

// AdminOnly allows the request to continue only for administrators: 401 for anonymous
// visitors, 403 for other accounts.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := CurrentIdentity(c)
		if !identity.Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.Msg{Msg: service.ErrUnauthorized.Error()})
			return
		}
		if !identity.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, entity.Msg{Msg: service.ErrForbidden.Error()})
			return
		}
		c.Next()
	}
}
