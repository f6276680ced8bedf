package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Role is the minimum privilege needed to run a command.
type Role int

const (
	// RolePublic commands are available to every non-blocked user.
	RolePublic Role = iota
	// RoleAdmin commands require an admin or super admin.
	RoleAdmin
	// RoleSuperAdmin commands require a configured super admin.
	RoleSuperAdmin
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	Role        Role
	Hidden      bool
	Aliases     []string
}

// Restricted reports whether the command is hidden from the public menu by role.
func (c Command) Restricted() bool {
	return c.Role != RolePublic
}
