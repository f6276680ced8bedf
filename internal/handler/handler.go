// Package handler implements the bot's commands and conversation flows.
// Handlers work on Incoming events and talk to users through a
// gateway.Gateway, so they run the same under telebot and in tests.
package handler

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/lumiabot/core/logger"
	"github.com/m3rciful/lumiabot/core/telegram/state"
	"github.com/m3rciful/lumiabot/internal/gateway"
	"github.com/m3rciful/lumiabot/internal/repository"
	"github.com/m3rciful/lumiabot/internal/service"
)

// Channels are the chat ids the bot reads files from and posts tickets to.
type Channels struct {
	Firmware  int64
	Emergency int64
	Upload    int64
	Request   int64
	Unblock   int64
}

// LookupPolicy decides what happens when /get_id receives a message without
// a visible forward origin.
type LookupPolicy string

const (
	LookupRetry LookupPolicy = "retry"
	LookupExit  LookupPolicy = "exit"
)

// Deps wires a Handler.
type Deps struct {
	Repo     repository.Repository
	Gateway  gateway.Gateway
	Access   *service.Access
	Quota    *service.Quota
	Sessions *state.Tracker[Incoming]
	Channels Channels

	OnLookupFailure LookupPolicy
	Now             func() time.Time
	NewRequestID    func() string
}

// Handler owns the command and flow logic.
type Handler struct {
	repo     repository.Repository
	gw       gateway.Gateway
	access   *service.Access
	quota    *service.Quota
	sessions *state.Tracker[Incoming]
	channels Channels

	lookupPolicy LookupPolicy
	now          func() time.Time
	newRequestID func() string
}

// New builds the handler and registers the flow states on the tracker.
func New(d Deps) *Handler {
	h := &Handler{
		repo:         d.Repo,
		gw:           d.Gateway,
		access:       d.Access,
		quota:        d.Quota,
		sessions:     d.Sessions,
		channels:     d.Channels,
		lookupPolicy: d.OnLookupFailure,
		now:          d.Now,
		newRequestID: d.NewRequestID,
	}
	if h.sessions == nil {
		h.sessions = state.NewTracker[Incoming](nil, state.Options{})
	}
	if h.lookupPolicy != LookupExit {
		h.lookupPolicy = LookupRetry
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.newRequestID == nil {
		h.newRequestID = func() string { return uuid.NewString() }
	}

	h.sessions.Handle(StateAwaitingProductType, h.onProductType)
	h.sessions.Handle(StateAwaitingProductCode, h.onProductCode)
	h.sessions.Handle(StateAwaitingEmergencyType, h.onEmergencyType)
	h.sessions.Handle(StateAwaitingUploadFirmware, h.onUpload)
	h.sessions.Handle(StateAwaitingBroadcastMessage, h.onBroadcast)
	h.sessions.Handle(StateAwaitingForwardedMessage, h.onForwardedMessage)
	return h
}

// Sessions exposes the tracker for routing and per-user locking.
func (h *Handler) Sessions() *state.Tracker[Incoming] {
	return h.sessions
}

// Dispatch feeds a non-command message to the user's active flow.
func (h *Handler) Dispatch(ctx context.Context, in Incoming) (bool, error) {
	return h.sessions.Dispatch(ctx, in.UserID, in)
}

func (h *Handler) reply(ctx context.Context, in Incoming, text string) error {
	return h.gw.Reply(ctx, gateway.Reply{ChatID: in.ChatID, ReplyTo: in.MessageID, Text: text})
}

func (h *Handler) replyHTML(ctx context.Context, in Incoming, text string) error {
	return h.gw.Reply(ctx, gateway.Reply{ChatID: in.ChatID, ReplyTo: in.MessageID, Text: text, Format: gateway.HTML})
}

// replyDone answers the final step of a flow and hides its choice keyboard.
func (h *Handler) replyDone(ctx context.Context, in Incoming, text string, f gateway.Format) error {
	return h.gw.Reply(ctx, gateway.Reply{
		ChatID: in.ChatID, ReplyTo: in.MessageID, Text: text, Format: f, RemoveKeyboard: true,
	})
}

// prompt asks for free input and offers the inline Cancel button.
func (h *Handler) prompt(ctx context.Context, in Incoming, text string) error {
	return h.gw.Reply(ctx, gateway.Reply{ChatID: in.ChatID, ReplyTo: in.MessageID, Text: text, Cancelable: true})
}

// exit leaves the flow; store failures are logged since the reply matters more.
func (h *Handler) exit(ctx context.Context, userID int64) {
	if _, err := h.sessions.Exit(ctx, userID); err != nil {
		logger.Error(ctx, "flow", "session.exit_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

// parseUserID validates the first argument. It replies with the usage or
// the invalid id message and returns false when the caller should stop.
func (h *Handler) parseUserID(ctx context.Context, in Incoming, args []string, want int, usage string) (int64, bool, error) {
	if len(args) < want {
		return 0, false, h.replyHTML(ctx, in, usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, false, h.reply(ctx, in, msgInvalidUserID)
	}
	return id, true, nil
}

// lookupUser resolves id through the gateway and reports unknown ids.
func (h *Handler) lookupUser(ctx context.Context, in Incoming, id int64) (gateway.ChatInfo, bool, error) {
	info, err := h.gw.LookupChat(ctx, id)
	if err != nil {
		logger.Info(ctx, "flow", "lookup.failed",
			slog.Int64("target_id", id),
		)
		return gateway.ChatInfo{}, false, h.reply(ctx, in, msgUnknownUserID)
	}
	return info, true, nil
}
