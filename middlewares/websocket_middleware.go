package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/line-order/utils"
)

// WebSocketAuthMiddleware authenticates the staff live feed. Browsers cannot
// set headers on a websocket handshake, so the JWT comes in ?token=.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := utils.ParseToken(c.Query("token"))
		if err != nil || claims.UserID == 0 {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("live feed requires a staff token"))
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}
