// Package model contains the persistent records and the firmware catalog.
package model

import (
	"strings"
	"time"
)

// Profile is the identity of a Telegram user or chat as reported by the platform.
type Profile struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	IsBot     bool
}

// FullName joins first and last name.
func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Handle returns "@username" or an empty string.
func (p Profile) Handle() string {
	if p.Username == "" {
		return ""
	}
	return "@" + p.Username
}

// User tracks a bot user and the download quota counters.
type User struct {
	ID            int64     `db:"user_id"`
	FullName      string    `db:"full_name"`
	Username      string    `db:"username"`
	IsBot         bool      `db:"is_bot"`
	TotalRequests int       `db:"total_requests"`
	LastRequested time.Time `db:"last_requested"`
}

// NewUser builds a fresh record for the given profile.
func NewUser(p Profile, now time.Time) User {
	return User{
		ID:            p.ID,
		FullName:      p.FullName(),
		Username:      p.Handle(),
		IsBot:         p.IsBot,
		LastRequested: now,
	}
}

// Admin is a stored admin. Super admins come from configuration only.
type Admin struct {
	ID       int64  `db:"user_id"`
	FullName string `db:"full_name"`
	Username string `db:"username"`
}

// Blocked is a user banned from every flow except the unblock request.
type Blocked struct {
	ID       int64  `db:"user_id"`
	FullName string `db:"full_name"`
	Username string `db:"username"`
	Reason   string `db:"reason"`
}
