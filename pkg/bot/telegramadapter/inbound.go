package telegramadapter

import (
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// InboundText extracts (senderID, text) from an update. ok is false for anything that is
// not a text message from a user, which the engine treats as protocol noise. The text is
// returned as typed except for the "@botname" suffix of a leading command.
func InboundText(update tgbotapi.Update) (senderID string, text string, ok bool) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return "", "", false
	}
	if msg.Text == "" {
		return "", "", false
	}

	text = msg.Text
	if msg.IsCommand() {
		text = stripBotMention(text)
	}
	return SenderID(msg.Chat.ID), text, true
}

// stripBotMention turns "/catat@ledger_bot args" into "/catat args".
func stripBotMention(text string) string {
	end := strings.IndexFunc(text, unicode.IsSpace)
	if end < 0 {
		end = len(text)
	}
	at := strings.IndexByte(text[:end], '@')
	if at < 0 {
		return text
	}
	return text[:at] + text[end:]
}
