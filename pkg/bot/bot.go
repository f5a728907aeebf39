package bot

import (
	"errors"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client is the thin Telegram API surface the ledger bot needs: long polling and
// plain-text replies.
type Client struct {
	api  *tgbotapi.BotAPI
	Self *tgbotapi.User
}

var ErrEmptyToken = errors.New("telegram bot token is empty")

// NewClient authenticates with token; tgbotapi.NewBotAPI already performs getMe.
func NewClient(token string) (*Client, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram authorization failed: %w", err)
	}
	api.Debug = false
	log.Printf("[bot.NewClient] Authorized as @%s (id %d)", api.Self.UserName, api.Self.ID)

	self := api.Self
	return &Client{api: api, Self: &self}, nil
}

// SendMessage sends plain text; menus are numbered lines, so no markup is attached.
func (c *Client) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	reply := tgbotapi.NewMessage(chatID, text)
	reply.DisableWebPagePreview = true

	sent, err := c.api.Send(reply)
	if err != nil {
		return tgbotapi.Message{}, fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	return sent, nil
}

// GetUpdatesChan starts long polling for message updates only.
func (c *Client) GetUpdatesChan(timeout int) tgbotapi.UpdatesChannel {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = timeout
	cfg.AllowedUpdates = []string{"message"}
	return c.api.GetUpdatesChan(cfg)
}

func (c *Client) StopReceivingUpdates() {
	c.api.StopReceivingUpdates()
}
