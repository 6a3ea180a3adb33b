package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gallery-backend/internal/shared"
	"gallery-backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(tokens TokenValidator) *gin.Engine {
	r := gin.New()
	echo := func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": actor.UserID.String(), "role": actor.Role})
	}

	r.GET("/me", AuthMiddleware(tokens), echo)
	r.GET("/ws", WebSocketAuthMiddleware(tokens), echo)
	r.GET("/admin", AuthMiddleware(tokens), AdminMiddleware(), echo)
	return r
}

func do(r *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	tokens := jwt.NewManager("test-secret", time.Minute, time.Hour)
	r := newTestRouter(tokens)

	userID := uuid.New()
	access, err := tokens.GenerateAccessToken(userID.String(), "a@example.com", shared.RoleUser)
	require.NoError(t, err)
	refresh, err := tokens.GenerateRefreshToken(userID.String())
	require.NoError(t, err)

	t.Run("valid bearer", func(t *testing.T) {
		w := do(r, "/me", "Bearer "+access)
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, userID.String(), body["user_id"])
		assert.Equal(t, shared.RoleUser, body["role"])
	})

	t.Run("scheme is case insensitive", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do(r, "/me", "bearer "+access).Code)
	})

	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "Basic "+access).Code)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "Bearer "+refresh).Code)
	})

	t.Run("query token only on websocket route", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(r, "/me?access_token="+access, "").Code)
		assert.Equal(t, http.StatusOK, do(r, "/ws?access_token="+access, "").Code)
	})
}

func TestAuthMiddleware_SignedWithOtherSecret(t *testing.T) {
	r := newTestRouter(jwt.NewManager("server-secret", time.Minute, time.Hour))
	forged, err := jwt.NewManager("other-secret", time.Minute, time.Hour).
		GenerateAccessToken(uuid.NewString(), "x@example.com", shared.RoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "Bearer "+forged).Code)
}

func TestAdminMiddleware(t *testing.T) {
	tokens := jwt.NewManager("test-secret", time.Minute, time.Hour)
	r := newTestRouter(tokens)

	user, err := tokens.GenerateAccessToken(uuid.NewString(), "u@example.com", shared.RoleUser)
	require.NoError(t, err)
	admin, err := tokens.GenerateAccessToken(uuid.NewString(), "a@example.com", shared.RoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, do(r, "/admin", "Bearer "+user).Code)
	assert.Equal(t, http.StatusOK, do(r, "/admin", "Bearer "+admin).Code)
}

func TestActorFrom_Unset(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := ActorFrom(c)
	assert.False(t, ok)

	SetActor(c, shared.Actor{UserID: uuid.Nil, Role: shared.RoleAdmin})
	_, ok = ActorFrom(c)
	assert.False(t, ok)
}
