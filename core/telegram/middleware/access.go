package middleware

import (
	"context"
	"log/slog"

	"github.com/m3rciful/lumiabot/core/logger"
	"github.com/m3rciful/lumiabot/core/telegram/commands"
	tghelpers "github.com/m3rciful/lumiabot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RoleChecker resolves privileges for a Telegram user.
type RoleChecker interface {
	IsAdmin(ctx context.Context, userID int64) bool
	IsSuperAdmin(userID int64) bool
}

// AccessOptions defines how role checks should behave.
type AccessOptions struct {
	Roles RoleChecker
	// OnAdminReject is invoked when a non-admin calls an admin command.
	OnAdminReject tele.HandlerFunc
	// OnSuperAdminReject is invoked when a non-super-admin calls a super admin command.
	OnSuperAdminReject tele.HandlerFunc
}

// RequireRole ensures that only users holding role can invoke downstream handlers.
// A nil RoleChecker denies every restricted command.
func RequireRole(role commands.Role, opts AccessOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if role == commands.RolePublic {
			return next
		}
		return func(c tele.Context) error {
			user := c.Sender()
			if user != nil && allowed(c, role, opts.Roles, user.ID) {
				return next(c)
			}

			ctx := tghelpers.BuildContext(c)
			logger.Info(ctx, "tg", "access.denied",
				slog.String("status", "skip"),
				slog.Int("role", int(role)),
			)
			reject := opts.OnAdminReject
			if role == commands.RoleSuperAdmin {
				reject = opts.OnSuperAdminReject
			}
			if reject != nil {
				return reject(c)
			}
			return nil
		}
	}
}

func allowed(c tele.Context, role commands.Role, roles RoleChecker, userID int64) bool {
	if roles == nil {
		return false
	}
	if roles.IsSuperAdmin(userID) {
		return true
	}
	if role == commands.RoleSuperAdmin {
		return false
	}
	return roles.IsAdmin(tghelpers.BuildContext(c), userID)
}

// BlockChecker reports whether a user is blocked, with the stored reason.
type BlockChecker interface {
	BlockedReason(ctx context.Context, userID int64) (string, bool)
}

// BlockOptions configures BlockGuard.
type BlockOptions struct {
	Checker BlockChecker
	// Allow lists command endpoints that blocked users may still call.
	Allow []string
	// OnBlocked replies to the blocked user.
	OnBlocked func(c tele.Context, reason string) error
}

// BlockGuard rejects every update from blocked users except allowed commands.
// Rejected updates never reach session handling.
func BlockGuard(opts BlockOptions) tele.MiddlewareFunc {
	allow := make(map[string]struct{}, len(opts.Allow))
	for _, cmd := range opts.Allow {
		allow[cmd] = struct{}{}
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if opts.Checker == nil || user == nil {
				return next(c)
			}
			if _, ok := allow[commandOf(c)]; ok {
				return next(c)
			}
			ctx := tghelpers.BuildContext(c)
			reason, blocked := opts.Checker.BlockedReason(ctx, user.ID)
			if !blocked {
				return next(c)
			}
			logger.Info(ctx, "tg", "access.blocked",
				slog.String("status", "skip"),
			)
			if c.Callback() != nil {
				_ = c.Respond()
			}
			if opts.OnBlocked != nil {
				return opts.OnBlocked(c, reason)
			}
			return nil
		}
	}
}

// commandOf extracts the "/command" token of a text message, ignoring a @bot suffix.
func commandOf(c tele.Context) string {
	msg := c.Message()
	if msg == nil || c.Callback() != nil {
		return ""
	}
	return tghelpers.CommandName(msg.Text)
}
