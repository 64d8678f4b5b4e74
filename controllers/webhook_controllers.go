package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/line-order/services"
	"github.com/yeremiapane/line-order/utils"
)

// LineWebhookController receives Messaging API callbacks.
type LineWebhookController struct {
	Webhook       *services.WebhookService
	ChannelSecret string
}

func (wc *LineWebhookController) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	signature := strings.TrimSpace(c.GetHeader("X-Line-Signature"))
	if signature == "" || wc.ChannelSecret == "" {
		utils.ErrorLogger.Warn("LINE webhook without signature or channel secret")
		utils.RespondError(c, http.StatusBadRequest, errors.New("missing signature or channel secret"))
		return
	}
	if !services.ValidateLineSignature(wc.ChannelSecret, body, signature) {
		utils.ErrorLogger.Warn("LINE webhook with invalid signature")
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid signature"))
		return
	}

	var payload services.WebhookPayload
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
	}

	wc.Webhook.HandlePayload(c.Request.Context(), payload)
	c.String(http.StatusOK, "OK")
}
