package handler

import (
	"context"

	tg "github.com/m3rciful/lumiabot/core/telegram"
	"github.com/m3rciful/lumiabot/core/telegram/commands"
	"github.com/m3rciful/lumiabot/core/telegram/middleware"
	"github.com/m3rciful/lumiabot/internal/gateway"

	tele "gopkg.in/telebot.v4"
)

// Func is the signature shared by command handlers.
type Func func(ctx context.Context, in Incoming) error

// Tele adapts fn to a telebot handler.
func Tele(fn Func) tele.HandlerFunc {
	return func(c tele.Context) error {
		return fn(middleware.HandlerContext(c), FromContext(c))
	}
}

type commandDef struct {
	name        string
	fn          Func
	description string
	role        commands.Role
}

func (h *Handler) commandTable() []commandDef {
	return []commandDef{
		{"/start", h.Start, "Start the bot", commands.RolePublic},
		{"/download", h.Download, "Download firmware for your device", commands.RolePublic},
		{"/upload", h.Upload, "Upload a firmware package", commands.RolePublic},
		{"/request", h.Request, "Request a missing firmware", commands.RolePublic},
		{"/emergency_files", h.EmergencyFiles, "Get emergency flash files", commands.RolePublic},
		{"/unblock", h.Unblock, "Ask to be unblocked", commands.RolePublic},
		{"/cancel", h.Cancel, "Cancel the current action", commands.RolePublic},

		{"/list_admins", h.ListAdmins, "Display the list of admins", commands.RoleAdmin},
		{"/get_id", h.GetID, "Retrieve the user ID of a user", commands.RoleAdmin},
		{"/get_info", h.GetInfo, "Retrieve the user info of a user", commands.RoleAdmin},
		{"/block_user", h.BlockUser, "Block a user from using the bot", commands.RoleAdmin},
		{"/unblock_user", h.UnblockUser, "Unblock a user", commands.RoleAdmin},
		{"/blocked_users", h.BlockedUsers, "Display the list of blocked users", commands.RoleAdmin},
		{"/administrators", h.Administrators, "List admin commands", commands.RoleAdmin},

		{"/add_admin", h.AddAdmin, "Promote a user to admin", commands.RoleSuperAdmin},
		{"/remove_admin", h.RemoveAdmin, "Demote an admin", commands.RoleSuperAdmin},
		{"/text_user", h.TextUser, "Send a message to a bot user", commands.RoleSuperAdmin},
		{"/notify_all", h.NotifyAll, "Send a message to all bot users", commands.RoleSuperAdmin},
	}
}

// Register adds every command and the inline Cancel callback to reg.
func (h *Handler) Register(reg *tg.Registry) error {
	for _, def := range h.commandTable() {
		err := reg.RegisterCommand(def.name, commands.Command{
			Handler:     Tele(def.fn),
			Description: def.description,
			Role:        def.role,
		})
		if err != nil {
			return err
		}
	}
	return reg.RegisterCallback(gateway.CancelKey, Tele(h.Cancel))
}

// InProgress implements router.FSM.
func (h *Handler) InProgress(c tele.Context) bool {
	user := c.Sender()
	if user == nil {
		return false
	}
	return h.sessions.InProgress(middleware.HandlerContext(c), user.ID)
}

// ManagerHandler implements router.FSM.
func (h *Handler) ManagerHandler(c tele.Context) error {
	_, err := h.Dispatch(middleware.HandlerContext(c), FromContext(c))
	return err
}

// Lock implements middleware.Locker.
func (h *Handler) Lock(userID int64) func() {
	return h.sessions.Lock(userID)
}

// AccessOptions returns the role guard wiring for command routes.
func (h *Handler) AccessOptions() middleware.AccessOptions {
	return middleware.AccessOptions{
		Roles:              h.access,
		OnAdminReject:      Tele(h.RejectAdmin),
		OnSuperAdminReject: Tele(h.RejectSuperAdmin),
	}
}

// BlockOptions returns the global block guard wiring.
func (h *Handler) BlockOptions() *middleware.BlockOptions {
	return &middleware.BlockOptions{
		Checker: h.access,
		Allow:   []string{"/unblock"},
		OnBlocked: func(c tele.Context, reason string) error {
			return h.Blocked(middleware.HandlerContext(c), FromContext(c), reason)
		},
	}
}
