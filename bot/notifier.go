package bot

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"listgram/digest"
)

// maxMessageLength is Telegram's hard limit for a single message.
const maxMessageLength = 4096

// Notifier delivers digests and replies to a single Telegram chat.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    *logrus.Logger
}

// NewNotifier creates a notifier bound to one chat.
func NewNotifier(token string, chatID int64, log *logrus.Logger) (*Notifier, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}

	log.WithField("username", botAPI.Self.UserName).Info("Telegram bot initialized")

	return &Notifier{
		api:    botAPI,
		chatID: chatID,
		log:    log,
	}, nil
}

// RegisterWebhook points Telegram at the given public url for update
// delivery.
func (n *Notifier) RegisterWebhook(webhookURL string) error {
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := n.api.Request(wh); err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}
	n.log.WithField("url", webhookURL).Info("Webhook registered")
	return nil
}

// SendDigest delivers every non-empty digest section as its own HTML
// message.
func (n *Notifier) SendDigest(d *digest.Digest) error {
	sections := d.Sections()
	if len(sections) == 0 {
		n.log.Info("Digest is empty, nothing to send")
		return nil
	}

	for _, section := range sections {
		text := "<b>" + html.EscapeString(section.Title) + "</b>\n" + section.HTML
		if err := n.SendHTML(text); err != nil {
			return fmt.Errorf("failed to send %q section: %w", section.Title, err)
		}
	}
	return nil
}

// SendHTML sends a message with HTML parse mode, chunked to Telegram's
// message size limit.
func (n *Notifier) SendHTML(text string) error {
	return n.send(text, true)
}

// SendText sends a plain text message, chunked like SendHTML.
func (n *Notifier) SendText(text string) error {
	return n.send(text, false)
}

func (n *Notifier) send(text string, asHTML bool) error {
	for _, chunk := range splitMessage(text, maxMessageLength) {
		msg := tgbotapi.NewMessage(n.chatID, chunk)
		if asHTML {
			msg.ParseMode = tgbotapi.ModeHTML
		}
		msg.DisableWebPagePreview = true

		if _, err := n.api.Send(msg); err != nil {
			n.log.WithError(err).WithField("chat_id", n.chatID).Error("Failed to send message")
			return err
		}
	}
	return nil
}

// splitMessage cuts text into chunks of at most limit bytes, preferring line
// boundaries so rendered entries stay intact. A single line longer than the
// limit is split mid-line.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, line := range strings.Split(text, "\n") {
		// hard-split pathological lines, backing off to a rune boundary
		for len(line) > limit {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}

		if current.Len() > 0 && current.Len()+len(line)+1 > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
