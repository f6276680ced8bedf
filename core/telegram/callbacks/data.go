// Package callbacks decodes inline button payloads.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Split returns the unique key and payload of an inline button press.
// Buttons built with ReplyMarkup.Data arrive as "\f<unique>|<payload>"
// unless telebot already split them into Unique and Data.
func Split(cb *tele.Callback) (unique, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	unique, payload, _ = strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// Key is Split without the payload.
func Key(cb *tele.Callback) string {
	k, _ := Split(cb)
	return k
}
