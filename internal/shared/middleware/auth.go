package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"gallery-backend/internal/shared"
	"gallery-backend/internal/shared/response"
	"gallery-backend/pkg/jwt"
)

const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

// TokenValidator is satisfied by *jwt.Manager.
type TokenValidator interface {
	ValidateAccessToken(token string) (*jwt.Claims, error)
}

// AuthMiddleware requires a valid bearer access token and puts the actor into the context.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return authenticate(tokens, false)
}

// WebSocketAuthMiddleware also accepts ?access_token=, browsers cannot set headers on upgrade.
func WebSocketAuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return authenticate(tokens, true)
}

func authenticate(tokens TokenValidator, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok && allowQuery {
			token = c.Query("access_token")
			ok = token != ""
		}
		if !ok {
			response.Unauthorized(c, "missing or malformed authorization header")
			c.Abort()
			return
		}

		claims, err := tokens.ValidateAccessToken(token)
		if err != nil {
			log.Debug().Err(err).Str("request_id", c.GetString("request_id")).Msg("token rejected")
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			response.Unauthorized(c, "invalid user ID in token")
			c.Abort()
			return
		}

		role := claims.Role
		if role == "" {
			role = shared.RoleUser
		}

		SetActor(c, shared.Actor{UserID: userID, Role: role})
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// SetActor stores the caller on the request context.
func SetActor(c *gin.Context, actor shared.Actor) {
	c.Set(ctxUserID, actor.UserID)
	c.Set(ctxRole, actor.Role)
}

// ActorFrom reads the caller set by AuthMiddleware.
func ActorFrom(c *gin.Context) (shared.Actor, bool) {
	raw, exists := c.Get(ctxUserID)
	if !exists {
		return shared.Actor{}, false
	}
	userID, ok := raw.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return shared.Actor{}, false
	}
	return shared.Actor{UserID: userID, Role: c.GetString(ctxRole)}, true
}
