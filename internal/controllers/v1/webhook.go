package v1

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/pocketbudget/backend/internal/telegram"
)

// webhookHandler processes Telegram updates. It is set during startup,
// the webhook endpoint answers 503 until then.
var webhookHandler *telegram.Handler

// SetWebhookHandler wires the Telegram handler into the webhook
// endpoint.
func SetWebhookHandler(handler *telegram.Handler) {
	webhookHandler = handler
}

// @Summary		Telegram webhook
// @Description	Receives updates from the Telegram Bot API
// @Tags			Telegram
// @Accept			json
// @Produce		json
// @Success		200
// @Failure		400	{object}	httpError
// @Failure		401	{object}	httpError
// @Failure		503	{object}	httpError
// @Router			/v1/telegram/webhook [post]
func TelegramWebhook(c *gin.Context) {
	if webhookHandler == nil {
		c.JSON(http.StatusServiceUnavailable, httpError{Error: "telegram is not configured"})
		return
	}

	// Telegram echoes the secret configured in setWebhook with every
	// delivery
	if secret, ok := os.LookupEnv("TELEGRAM_WEBHOOK_SECRET"); ok {
		if c.GetHeader("X-Telegram-Bot-Api-Secret-Token") != secret {
			c.JSON(http.StatusUnauthorized, httpError{Error: "invalid webhook secret"})
			return
		}
	}

	var update tgmodels.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	// Always acknowledge so Telegram does not redeliver; user facing
	// failures are reported in chat
	webhookHandler.HandleUpdate(c.Request.Context(), &update)
	c.JSON(http.StatusOK, gin.H{})
}
