package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"gallery-backend/internal/shared/response"
)

// Recovery turns a handler panic into a 500 envelope. Nothing is written when
// the response already started (image streaming).
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			log.Error().
				Str("request_id", c.GetString("request_id")).
				Str("path", c.FullPath()).
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if !c.Writer.Written() {
				response.InternalServerError(c, "Internal server error")
			}
			c.Abort()
		}()

		c.Next()
	}
}
