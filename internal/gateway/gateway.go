// Package gateway is the outbound side of the bot: replies, keyboards,
// media delivery and chat lookups. Handlers depend on the Gateway interface;
// Telebot implements it on top of gopkg.in/telebot.v4.
package gateway

import (
	"context"

	"github.com/m3rciful/lumiabot/internal/model"
)

// Format selects the parse mode of a text message.
type Format int

const (
	Plain Format = iota
	HTML
	MarkdownV2
)

// Reply is a text answer to an incoming message.
type Reply struct {
	ChatID int64
	// ReplyTo quotes the incoming message when non-zero.
	ReplyTo int
	Text    string
	Format  Format
	// RemoveKeyboard hides a reply keyboard left by an earlier prompt.
	RemoveKeyboard bool
	// Cancelable attaches an inline Cancel button. It takes precedence over RemoveKeyboard.
	Cancelable bool
}

// ChatInfo is what LookupChat reports about a user.
type ChatInfo struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	Type      string
	Bio       string
}

// Profile converts the chat into the identity stored in records.
func (c ChatInfo) Profile() model.Profile {
	return model.Profile{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Username:  c.Username,
	}
}

// Gateway sends messages on behalf of the bot.
type Gateway interface {
	Reply(ctx context.Context, r Reply) error
	// Send writes a message to a chat and returns its id.
	Send(ctx context.Context, chatID int64, text string, f Format) (int, error)
	// Post queues a message to a channel without waiting for delivery.
	Post(ctx context.Context, channelID int64, text string, f Format) error
	// PresentChoices replies with a one-time keyboard of labels.
	PresentChoices(ctx context.Context, chatID int64, replyTo int, text string, labels []string) error
	// DeliverMedia copies stored messages from a source channel as protected content.
	DeliverMedia(ctx context.Context, chatID int64, replyTo int, source int64, refs []int) error
	Forward(ctx context.Context, dest, fromChat int64, messageID int) error
	Copy(ctx context.Context, dest, fromChat int64, messageID int) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	// LookupChat resolves a user id; unknown ids return errs.ErrLookupFailure.
	LookupChat(ctx context.Context, id int64) (ChatInfo, error)
}
