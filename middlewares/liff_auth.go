package middlewares

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/line-order/models"
	"github.com/yeremiapane/line-order/services"
	"github.com/yeremiapane/line-order/utils"
)

// ProfileResolver turns a LIFF access token into a stored LINE profile.
type ProfileResolver interface {
	Resolve(ctx context.Context, accessToken string) (*models.LineProfile, *services.LineUser, error)
}

// LiffAuth verifies the mini app's access token, taken from the
// Authorization header, the access_token query parameter or the
// access_token field of a JSON body.
func LiffAuth(resolver ProfileResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			token = c.Query("access_token")
		}
		if token == "" {
			token = tokenFromBody(c)
		}

		profile, user, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			utils.RespondAppError(c, err)
			c.Abort()
			return
		}

		c.Set("lineProfile", profile)
		c.Set("lineUser", user)
		c.Next()
	}
}

// LineProfileFrom returns the profile stored by LiffAuth.
func LineProfileFrom(c *gin.Context) (*models.LineProfile, *services.LineUser) {
	profile, _ := c.MustGet("lineProfile").(*models.LineProfile)
	user, _ := c.MustGet("lineUser").(*services.LineUser)
	return profile, user
}

// tokenFromBody peeks at the JSON body and puts it back for the handler.
func tokenFromBody(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	return body.AccessToken
}
