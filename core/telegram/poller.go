package telegram

import (
	"net"
	"strconv"
	"time"

	coreconfig "github.com/m3rciful/playlistbot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPoll = 10 * time.Second

// allowedUpdates lists the update kinds the bot handles; Telegram drops the rest.
var allowedUpdates = []string{"message", "callback_query", "inline_query"}

// longPollTimeout returns the getUpdates timeout, or 0 in webhook mode.
func longPollTimeout(cfg *coreconfig.Config) time.Duration {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return 0
	}
	if s := cfg.Telegram.LongPollTimeoutSeconds; s > 0 {
		return time.Duration(s) * time.Second
	}
	return defaultLongPoll
}

// BuildPoller returns a webhook or long poller for the configured run mode.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:         net.JoinHostPort(cfg.Webhook.Listen, strconv.Itoa(cfg.Webhook.Port)),
			Endpoint:       &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
			AllowedUpdates: allowedUpdates,
		}
	}
	return &tele.LongPoller{Timeout: longPollTimeout(cfg), AllowedUpdates: allowedUpdates}
}
