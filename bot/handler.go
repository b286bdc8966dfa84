package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Sender is the outgoing half of the notifier used by the command handler.
type Sender interface {
	SendHTML(text string) error
	SendText(text string) error
}

// Handler reacts to bot commands arriving through the webhook.
type Handler struct {
	sender  Sender
	trigger func()
	name    string
	version string
	log     *logrus.Logger
}

// NewHandler creates a command handler. trigger is invoked for /digest and
// runs the digest out of band.
func NewHandler(sender Sender, trigger func(), name, version string, log *logrus.Logger) *Handler {
	return &Handler{
		sender:  sender,
		trigger: trigger,
		name:    name,
		version: version,
		log:     log,
	}
}

// HandleUpdate dispatches a Telegram update. Non-command messages are
// ignored.
func (h *Handler) HandleUpdate(update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}

	command := update.Message.Command()
	h.log.WithFields(logrus.Fields{
		"command": command,
		"chat_id": update.Message.Chat.ID,
	}).Info("Received command")

	switch command {
	case "digest":
		go h.trigger()
	case "about":
		text := fmt.Sprintf("%s\nVersion %s", h.name, h.version)
		if err := h.sender.SendText(text); err != nil {
			h.log.WithError(err).Error("Failed to send about message")
		}
	}
}
