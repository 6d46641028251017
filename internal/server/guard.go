package server

import (
	"github.com/gin-gonic/gin"

	"github.com/oggyb/devconnect/internal/auth"
	"github.com/oggyb/devconnect/internal/logger"
	"github.com/oggyb/devconnect/internal/response"
)

// Guard authenticates requests with the shared Authenticator.
type Guard struct {
	auth *auth.Authenticator
}

func NewGuard(a *auth.Authenticator) *Guard {
	return &Guard{auth: a}
}

// RequireAuth rejects the request unless it carries a valid bearer token for
// an active account.
func (g *Guard) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := g.auth.Authenticate(c.Request.Context(), auth.TokenFromRequest(c.Request))
		if err != nil {
			response.Fail(c, err)
			return
		}
		bind(c, id)
		c.Next()
	}
}

// OptionalAuth attaches the identity when the token is valid and otherwise
// lets the request through anonymously.
func (g *Guard) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := auth.TokenFromRequest(c.Request); token != "" {
			id, err := g.auth.Authenticate(c.Request.Context(), token)
			if err == nil {
				bind(c, id)
			} else {
				logger.FromContext(c.Request.Context()).Debug("ignoring invalid optional token", "err", err)
			}
		}
		c.Next()
	}
}

// SocketHandshake authenticates the opening request of a realtime session.
// Follow-up transport requests carry the engine session id and were already
// authenticated when the session was opened.
func (g *Guard) SocketHandshake() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("sid") != "" {
			c.Next()
			return
		}
		g.RequireAuth()(c)
	}
}

func bind(c *gin.Context, id auth.Identity) {
	ctx := auth.WithIdentity(c.Request.Context(), id)
	ctx = logger.IntoContext(ctx, logger.FromContext(ctx).With("user_id", id.UserID))
	c.Request = c.Request.WithContext(ctx)
}

// Identity returns the identity bound by RequireAuth or OptionalAuth.
func Identity(c *gin.Context) (auth.Identity, bool) {
	return auth.FromContext(c.Request.Context())
}
