package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/lumiabot/core/logger"
	"github.com/m3rciful/lumiabot/internal/errs"
	"github.com/m3rciful/lumiabot/internal/gateway"
	"github.com/m3rciful/lumiabot/internal/model"
)

// Start records first contact and greets the user.
func (h *Handler) Start(ctx context.Context, in Incoming) error {
	known, err := h.access.EnsureUser(ctx, in.Profile, h.now())
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	_, err = h.gw.Send(ctx, in.ChatID, welcomeText(in.Profile, known), gateway.HTML)
	return err
}

// Request files a ticket for a firmware missing from the catalog.
func (h *Handler) Request(ctx context.Context, in Incoming) error {
	args := in.Args()
	if len(args) < 2 {
		return h.replyHTML(ctx, in, usageRequest)
	}
	productType, productCode := model.NormalizeKey(args[0]), model.NormalizeKey(args[1])

	catalog, err := h.repo.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	dev, ok := catalog.Device(productType)
	if !ok {
		return h.reply(ctx, in, msgInvalidType)
	}
	code, ok := dev.Code(productCode)
	if !ok {
		return h.reply(ctx, in, msgInvalidCode)
	}
	if code.Available() {
		return h.gw.Reply(ctx, gateway.Reply{
			ChatID: in.ChatID, ReplyTo: in.MessageID, Format: gateway.MarkdownV2,
			Text: alreadyAvailableText(productType, productCode),
		})
	}

	requestID := h.newRequestID()
	ticket := requestTicketText(requestID, in.Profile, productType, productCode)
	if err := h.gw.Post(ctx, h.channels.Request, ticket, gateway.HTML); err != nil {
		return fmt.Errorf("request ticket: %w", err)
	}
	logger.Info(ctx, "flow", "request.filed",
		slog.String("id", requestID),
		slog.String("product_type", productType),
		slog.String("product_code", productCode),
	)
	return h.gw.Reply(ctx, gateway.Reply{
		ChatID: in.ChatID, ReplyTo: in.MessageID, Format: gateway.MarkdownV2,
		Text: requestAcceptedText(productType, productCode),
	})
}

// Unblock forwards an unblock request to the moderators.
func (h *Handler) Unblock(ctx context.Context, in Incoming) error {
	reason := strings.TrimSpace(in.Payload)
	if reason == "" {
		return h.replyHTML(ctx, in, usageUnblock)
	}
	if err := h.gw.Post(ctx, h.channels.Unblock, unblockTicketText(in.Profile, reason), gateway.HTML); err != nil {
		return fmt.Errorf("unblock ticket: %w", err)
	}
	return h.reply(ctx, in, msgUnblockReceived)
}

// AddAdmin promotes an existing user.
func (h *Handler) AddAdmin(ctx context.Context, in Incoming) error {
	id, ok, err := h.parseUserID(ctx, in, in.Args(), 1, usageAddAdmin)
	if !ok {
		return err
	}
	info, ok, err := h.lookupUser(ctx, in, id)
	if !ok {
		return err
	}
	p := info.Profile()
	err = h.access.Promote(ctx, model.Admin{ID: id, FullName: p.FullName(), Username: p.Handle()})
	switch {
	case errors.Is(err, errs.ErrBlockedTarget):
		return h.reply(ctx, in, msgPromoteBlocked)
	case errors.Is(err, errs.ErrAlreadyAdmin):
		return h.reply(ctx, in, msgAlreadyAdmin)
	case err != nil:
		return err
	}
	return h.reply(ctx, in, msgPromoted)
}

// RemoveAdmin demotes a stored admin.
func (h *Handler) RemoveAdmin(ctx context.Context, in Incoming) error {
	id, ok, err := h.parseUserID(ctx, in, in.Args(), 1, usageRemoveAdmin)
	if !ok {
		return err
	}
	err = h.access.Demote(ctx, id)
	switch {
	case errors.Is(err, errs.ErrSuperAdminTarget):
		return h.reply(ctx, in, msgDemoteSuper)
	case errors.Is(err, errs.ErrNotAdmin):
		return h.reply(ctx, in, msgNotAnAdmin)
	case err != nil:
		return err
	}
	return h.reply(ctx, in, msgDemoted)
}

// TextUser sends a plain message to one user.
func (h *Handler) TextUser(ctx context.Context, in Incoming) error {
	args := in.Args()
	id, ok, err := h.parseUserID(ctx, in, args, 2, usageTextUser)
	if !ok {
		return err
	}
	if _, ok, err := h.lookupUser(ctx, in, id); !ok {
		return err
	}
	if _, err := h.gw.Send(ctx, id, strings.Join(args[1:], " "), gateway.Plain); err != nil {
		logger.Warn(ctx, "flow", "text_user.failed",
			slog.Int64("target_id", id),
			slog.String("err", err.Error()),
		)
		return h.reply(ctx, in, msgUserNotReached)
	}
	return h.reply(ctx, in, msgUserNotified)
}

// ListAdmins shows stored admins.
func (h *Handler) ListAdmins(ctx context.Context, in Incoming) error {
	admins, err := h.access.Admins(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	return h.replyHTML(ctx, in, adminsText(admins))
}

// GetInfo shows what the platform reports about a user.
func (h *Handler) GetInfo(ctx context.Context, in Incoming) error {
	id, ok, err := h.parseUserID(ctx, in, in.Args(), 1, usageGetInfo)
	if !ok {
		return err
	}
	info, ok, err := h.lookupUser(ctx, in, id)
	if !ok {
		return err
	}
	p := info.Profile()
	return h.replyHTML(ctx, in, chatInfoText(p.FullName(), p.Handle(), info.Type, info.Bio))
}

// BlockUser bans a user and drops any flow they are in.
func (h *Handler) BlockUser(ctx context.Context, in Incoming) error {
	args := in.Args()
	id, ok, err := h.parseUserID(ctx, in, args, 2, usageBlockUser)
	if !ok {
		return err
	}
	info, ok, err := h.lookupUser(ctx, in, id)
	if !ok {
		return err
	}
	p := info.Profile()
	err = h.access.Block(ctx, model.Blocked{
		ID:       id,
		FullName: p.FullName(),
		Username: p.Handle(),
		Reason:   strings.Join(args[1:], " "),
	})
	switch {
	case errors.Is(err, errs.ErrPrivilegedTarget):
		return h.reply(ctx, in, msgBlockPrivileged)
	case errors.Is(err, errs.ErrAlreadyBlocked):
		return h.reply(ctx, in, msgAlreadyBlocked)
	case err != nil:
		return err
	}
	h.exit(ctx, id)
	return h.gw.Reply(ctx, gateway.Reply{
		ChatID: in.ChatID, ReplyTo: in.MessageID, Text: blockedUserText(id), Format: gateway.MarkdownV2,
	})
}

// UnblockUser lifts a ban.
func (h *Handler) UnblockUser(ctx context.Context, in Incoming) error {
	id, ok, err := h.parseUserID(ctx, in, in.Args(), 1, usageUnblockUser)
	if !ok {
		return err
	}
	err = h.access.Unblock(ctx, id)
	switch {
	case errors.Is(err, errs.ErrNotBlocked):
		return h.reply(ctx, in, msgNotBlocked)
	case err != nil:
		return err
	}
	return h.gw.Reply(ctx, gateway.Reply{
		ChatID: in.ChatID, ReplyTo: in.MessageID, Text: unblockedUserText(id), Format: gateway.MarkdownV2,
	})
}

// BlockedUsers lists banned users.
func (h *Handler) BlockedUsers(ctx context.Context, in Incoming) error {
	blocked, err := h.access.Blocked(ctx)
	if err != nil {
		return fmt.Errorf("blocked users: %w", err)
	}
	return h.replyHTML(ctx, in, blockedListText(blocked))
}

// Administrators lists the privileged commands.
func (h *Handler) Administrators(ctx context.Context, in Incoming) error {
	return h.replyHTML(ctx, in, msgAdministrators)
}

// Blocked answers a blocked user.
func (h *Handler) Blocked(ctx context.Context, in Incoming, reason string) error {
	return h.replyHTML(ctx, in, blockedNoticeText(reason))
}

// RejectAdmin answers a non-admin calling an admin command.
func (h *Handler) RejectAdmin(ctx context.Context, in Incoming) error {
	return h.reply(ctx, in, msgNotAdmin)
}

// RejectSuperAdmin answers a caller without super admin rights.
func (h *Handler) RejectSuperAdmin(ctx context.Context, in Incoming) error {
	return h.reply(ctx, in, msgNotSuperAdmin)
}

// Failed answers after a handler panic and drops the flow that caused it.
func (h *Handler) Failed(ctx context.Context, in Incoming) error {
	h.exit(ctx, in.UserID)
	return h.replyDone(ctx, in, msgInternalError, gateway.Plain)
}

// SlowDown answers updates rejected by the anti-flood interval.
func (h *Handler) SlowDown(ctx context.Context, in Incoming) error {
	return h.reply(ctx, in, msgSlowDown)
}
