package telegramadapter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ledgerbot/pkg/bot"
	"ledgerbot/pkg/ports/botport"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Package telegramadapter implements botport.BotPort using the Telegram client.
// Sender ids are Telegram chat ids rendered as base-10 strings.

const transportName = "telegram"

// Logger defines the minimal logging interface used by the adapter.
type Logger interface {
	Printf(format string, args ...any)
}

type telegramClient interface {
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
}

// Adapter wraps a Telegram client and satisfies botport.BotPort.
type Adapter struct {
	client telegramClient
	logger Logger
}

var _ telegramClient = (*bot.Client)(nil)
var _ botport.BotPort = (*Adapter)(nil)

// New constructs a Telegram adapter with the provided bot client and logger.
func New(client telegramClient, logger Logger) (*Adapter, error) {
	if client == nil {
		return nil, fmt.Errorf("telegramadapter: client is nil")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter{
		client: client,
		logger: logger,
	}, nil
}

// SendText dispatches a new Telegram message to the chat behind senderID.
func (a *Adapter) SendText(ctx context.Context, senderID string, text string) (botport.BotMessage, error) {
	if err := ctx.Err(); err != nil {
		return botport.BotMessage{}, wrapContextError("send_text", err)
	}
	chatID, err := ChatID(senderID)
	if err != nil {
		return botport.BotMessage{}, botport.NewBotError("send_text", botport.CodeBadPayload, err)
	}
	msg, err := a.client.SendMessage(chatID, text)
	if err != nil {
		return botport.BotMessage{}, a.wrapAndLogError("send_text", senderID, err)
	}
	bm := toBotMessage(msg)
	a.log("send_text", map[string]any{"sender_id": bm.SenderID, "message_id": bm.MessageID})
	return bm, nil
}

// ChatID converts a sender id back into a Telegram chat id.
func ChatID(senderID string) (int64, error) {
	chatID, err := strconv.ParseInt(strings.TrimSpace(senderID), 10, 64)
	if err != nil || chatID == 0 {
		return 0, fmt.Errorf("invalid telegram sender id %q", senderID)
	}
	return chatID, nil
}

// SenderID renders a Telegram chat id as a sender id.
func SenderID(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func (a *Adapter) wrapAndLogError(op string, senderID string, err error) error {
	wrapped := wrapTelegramError(op, err)
	a.log(op, map[string]any{
		"sender_id": senderID,
		"code":      getBotErrorCode(wrapped),
		"error":     err.Error(),
	})
	return wrapped
}

func (a *Adapter) log(op string, attrs map[string]any) {
	if a.logger == nil {
		return
	}
	a.logger.Printf("botport op=%s attrs=%v", op, attrs)
}

func toBotMessage(msg tgbotapi.Message) botport.BotMessage {
	payload := msg.Text
	if payload == "" {
		payload = msg.Caption
	}
	return botport.BotMessage{
		SenderID:  senderIDFromMessage(msg),
		MessageID: msg.MessageID,
		Transport: transportName,
		Payload:   payload,
	}
}

func senderIDFromMessage(msg tgbotapi.Message) string {
	if msg.Chat != nil {
		return SenderID(msg.Chat.ID)
	}
	return ""
}

func wrapContextError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return &botport.BotError{Op: op, Code: botport.CodeContextCanceled, Wrapped: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &botport.BotError{Op: op, Code: botport.CodeContextDeadline, Wrapped: err}
	}
	return &botport.BotError{Op: op, Code: botport.CodeContextError, Wrapped: err}
}

func wrapTelegramError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return wrapContextError(op, err)
	}
	code, retry := classifyTelegramError(err)
	return &botport.BotError{
		Op:         op,
		Code:       code,
		RetryAfter: retry,
		Wrapped:    err,
	}
}

var retryAfterRegex = regexp.MustCompile(`(?i)retry after (\d+)`)

func classifyTelegramError(err error) (string, time.Duration) {
	if err == nil {
		return botport.CodeUnknown, 0
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "too many requests"):
		return botport.CodeRateLimited, extractRetryAfter(msg)
	case strings.Contains(msg, "bad request"):
		return botport.CodeBadRequest, 0
	case strings.Contains(msg, "forbidden"):
		return botport.CodeForbidden, 0
	default:
		return botport.CodeUnknown, 0
	}
}

func extractRetryAfter(msg string) time.Duration {
	matches := retryAfterRegex.FindStringSubmatch(msg)
	if len(matches) != 2 {
		return 0
	}
	seconds, err := time.ParseDuration(matches[1] + "s")
	if err != nil {
		return 0
	}
	return seconds
}

func getBotErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var be *botport.BotError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
