package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/m3rciful/lumiabot/core/logger"
	tghelpers "github.com/m3rciful/lumiabot/core/telegram/helpers"
	"github.com/m3rciful/lumiabot/core/telegram/keyboard"
	"github.com/m3rciful/lumiabot/core/telegram/middleware"
	"github.com/m3rciful/lumiabot/internal/errs"

	tele "gopkg.in/telebot.v4"
)

// CancelKey is the callback unique of the inline Cancel button.
const CancelKey = "cancel"

const choicesPerRow = 2

// API is the subset of *tele.Bot used by the gateway.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Copy(to tele.Recipient, msg tele.Editable, opts ...interface{}) (*tele.Message, error)
	Forward(to tele.Recipient, msg tele.Editable, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
	ChatByID(id int64) (*tele.Chat, error)
}

var _ API = (*tele.Bot)(nil)

// ErrDetached is returned when the gateway is used before a bot is attached.
var ErrDetached = errors.New("gateway: bot not attached")

type apiHolder struct{ API }

// Telebot implements Gateway on top of a telebot API.
type Telebot struct {
	api atomic.Pointer[apiHolder]
}

var _ Gateway = (*Telebot)(nil)

// NewTelebot builds a gateway. api may be nil and attached later, once the
// bot exists.
func NewTelebot(api API) *Telebot {
	t := &Telebot{}
	if api != nil {
		t.Attach(api)
	}
	return t
}

// Attach binds the bot used for outbound calls.
func (t *Telebot) Attach(api API) {
	t.api.Store(&apiHolder{API: api})
}

func (t *Telebot) client() (API, error) {
	h := t.api.Load()
	if h == nil || h.API == nil {
		return nil, ErrDetached
	}
	return h.API, nil
}

func parseMode(f Format) tele.ParseMode {
	switch f {
	case HTML:
		return tele.ModeHTML
	case MarkdownV2:
		return tele.ModeMarkdownV2
	}
	return tele.ModeDefault
}

func stored(chatID int64, messageID int) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
}

func replyTo(id int) *tele.Message {
	if id == 0 {
		return nil
	}
	return &tele.Message{ID: id}
}

// Reply sends a text answer.
func (t *Telebot) Reply(ctx context.Context, r Reply) error {
	api, err := t.client()
	if err != nil {
		return err
	}
	opts := &tele.SendOptions{
		ParseMode: parseMode(r.Format),
		ReplyTo:   replyTo(r.ReplyTo),
	}
	switch {
	case r.Cancelable:
		opts.ReplyMarkup = keyboard.Cancel(CancelKey)
	case r.RemoveKeyboard:
		opts.ReplyMarkup = keyboard.Remove()
	}
	if _, err := api.Send(tele.ChatID(r.ChatID), r.Text, opts); err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	middleware.RecordSend(ctx, opts.ReplyMarkup != nil)
	return nil
}

// Send writes a standalone message.
func (t *Telebot) Send(ctx context.Context, chatID int64, text string, f Format) (int, error) {
	api, err := t.client()
	if err != nil {
		return 0, err
	}
	msg, err := api.Send(tele.ChatID(chatID), text, &tele.SendOptions{ParseMode: parseMode(f)})
	if err != nil {
		return 0, fmt.Errorf("send: %w", err)
	}
	middleware.RecordSend(ctx, false)
	if msg == nil {
		return 0, nil
	}
	return msg.ID, nil
}

// Post queues a channel message on the shared sender dispatcher.
func (t *Telebot) Post(ctx context.Context, channelID int64, text string, f Format) error {
	api, err := t.client()
	if err != nil {
		return err
	}
	opts := &tele.SendOptions{ParseMode: parseMode(f)}
	return tghelpers.SendAsync(ctx, "post", "sendMessage", func() error {
		_, err := api.Send(tele.ChatID(channelID), text, opts)
		return err
	})
}

// PresentChoices replies with a one-time reply keyboard, two labels per row.
func (t *Telebot) PresentChoices(ctx context.Context, chatID int64, replyToID int, text string, labels []string) error {
	api, err := t.client()
	if err != nil {
		return err
	}
	opts := &tele.SendOptions{ReplyTo: replyTo(replyToID), ReplyMarkup: keyboard.Choices(labels, choicesPerRow)}
	if _, err := api.Send(tele.ChatID(chatID), text, opts); err != nil {
		return fmt.Errorf("present choices: %w", err)
	}
	middleware.RecordSend(ctx, true)
	return nil
}

// DeliverMedia copies refs from source. A single file quotes the request;
// several files are copied in order after the reply keyboard is cleared.
func (t *Telebot) DeliverMedia(ctx context.Context, chatID int64, replyToID int, source int64, refs []int) error {
	api, err := t.client()
	if err != nil {
		return err
	}
	switch len(refs) {
	case 0:
		return fmt.Errorf("deliver media: %w", errs.ErrNotFound)
	case 1:
		opts := &tele.SendOptions{
			ReplyTo:     replyTo(replyToID),
			Protected:   true,
			ReplyMarkup: keyboard.Remove(),
		}
		if _, err := api.Copy(tele.ChatID(chatID), stored(source, refs[0]), opts); err != nil {
			return fmt.Errorf("%w: copy %d: %w", errs.ErrDeliveryFailure, refs[0], err)
		}
		middleware.RecordSend(ctx, true)
		return nil
	}

	wait, err := api.Send(tele.ChatID(chatID), "Please wait...", &tele.SendOptions{ReplyMarkup: keyboard.Remove()})
	if err == nil && wait != nil {
		if err := api.Delete(wait); err != nil {
			logger.Debug(ctx, "tg", "wait.delete_failed", slog.String("err", err.Error()))
		}
	}
	for _, ref := range refs {
		if _, err := api.Copy(tele.ChatID(chatID), stored(source, ref), &tele.SendOptions{Protected: true}); err != nil {
			return fmt.Errorf("%w: copy %d: %w", errs.ErrDeliveryFailure, ref, err)
		}
		middleware.RecordSend(ctx, false)
	}
	return nil
}

// Forward forwards a message verbatim.
func (t *Telebot) Forward(ctx context.Context, dest, fromChat int64, messageID int) error {
	api, err := t.client()
	if err != nil {
		return err
	}
	if _, err := api.Forward(tele.ChatID(dest), stored(fromChat, messageID)); err != nil {
		return fmt.Errorf("%w: forward: %w", errs.ErrDeliveryFailure, err)
	}
	return nil
}

// Copy copies a message without the forward header.
func (t *Telebot) Copy(ctx context.Context, dest, fromChat int64, messageID int) error {
	api, err := t.client()
	if err != nil {
		return err
	}
	if _, err := api.Copy(tele.ChatID(dest), stored(fromChat, messageID)); err != nil {
		return fmt.Errorf("%w: copy: %w", errs.ErrDeliveryFailure, err)
	}
	return nil
}

// Delete removes a message sent by the bot.
func (t *Telebot) Delete(ctx context.Context, chatID int64, messageID int) error {
	api, err := t.client()
	if err != nil {
		return err
	}
	return api.Delete(stored(chatID, messageID))
}

// LookupChat resolves id through getChat.
func (t *Telebot) LookupChat(ctx context.Context, id int64) (ChatInfo, error) {
	api, err := t.client()
	if err != nil {
		return ChatInfo{}, err
	}
	chat, err := api.ChatByID(id)
	if err != nil || chat == nil {
		logger.Debug(ctx, "tg", "chat.lookup_failed",
			slog.Int64("target_id", id),
			slog.Any("err", err),
		)
		return ChatInfo{}, fmt.Errorf("lookup %d: %w", id, errs.ErrLookupFailure)
	}
	return ChatInfo{
		ID:        chat.ID,
		FirstName: chat.FirstName,
		LastName:  chat.LastName,
		Username:  chat.Username,
		Type:      string(chat.Type),
		Bio:       chat.Bio,
	}, nil
}
