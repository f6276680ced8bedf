package middleware

import (
	"context"
	"sync"
	"testing"

	"github.com/m3rciful/lumiabot/core/telegram/commands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

type roles struct {
	admins map[int64]bool
	supers map[int64]bool
}

func (r roles) IsAdmin(_ context.Context, id int64) bool { return r.admins[id] }
func (r roles) IsSuperAdmin(id int64) bool               { return r.supers[id] }

type blocked map[int64]string

func (b blocked) BlockedReason(_ context.Context, id int64) (string, bool) {
	reason, ok := b[id]
	return reason, ok
}

func newContext(t *testing.T, userID int64, text string) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return bot.NewContext(tele.Update{
		ID: 1,
		Message: &tele.Message{
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID},
			Text:   text,
		},
	})
}

func TestRequireRole(t *testing.T) {
	r := roles{
		admins: map[int64]bool{2: true},
		supers: map[int64]bool{1: true},
	}
	tests := []struct {
		name     string
		role     commands.Role
		user     int64
		wantNext bool
		wantRej  string
	}{
		{name: "public passes", role: commands.RolePublic, user: 9, wantNext: true},
		{name: "admin passes admin", role: commands.RoleAdmin, user: 2, wantNext: true},
		{name: "super passes admin", role: commands.RoleAdmin, user: 1, wantNext: true},
		{name: "user rejected admin", role: commands.RoleAdmin, user: 9, wantRej: "admin"},
		{name: "admin rejected super", role: commands.RoleSuperAdmin, user: 2, wantRej: "super"},
		{name: "super passes super", role: commands.RoleSuperAdmin, user: 1, wantNext: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			var rejected string
			opts := AccessOptions{
				Roles:              r,
				OnAdminReject:      func(tele.Context) error { rejected = "admin"; return nil },
				OnSuperAdminReject: func(tele.Context) error { rejected = "super"; return nil },
			}
			h := RequireRole(tt.role, opts)(func(tele.Context) error {
				called = true
				return nil
			})
			require.NoError(t, h(newContext(t, tt.user, "/x")))
			assert.Equal(t, tt.wantNext, called)
			assert.Equal(t, tt.wantRej, rejected)
		})
	}
}

func TestRequireRole_NilCheckerDenies(t *testing.T) {
	called := false
	h := RequireRole(commands.RoleAdmin, AccessOptions{})(func(tele.Context) error {
		called = true
		return nil
	})
	require.NoError(t, h(newContext(t, 1, "/list_admins")))
	assert.False(t, called)
}

func TestBlockGuard(t *testing.T) {
	checker := blocked{5: "spam"}
	var gotReason string
	guard := BlockGuard(BlockOptions{
		Checker: checker,
		Allow:   []string{"/unblock"},
		OnBlocked: func(_ tele.Context, reason string) error {
			gotReason = reason
			return nil
		},
	})

	tests := []struct {
		name     string
		user     int64
		text     string
		wantNext bool
	}{
		{name: "blocked download", user: 5, text: "/download", wantNext: false},
		{name: "blocked free text", user: 5, text: "RM-1085", wantNext: false},
		{name: "blocked cancel", user: 5, text: "/cancel", wantNext: false},
		{name: "blocked unblock allowed", user: 5, text: "/unblock sorry", wantNext: true},
		{name: "blocked unblock with bot suffix", user: 5, text: "/unblock@LumiaBot sorry", wantNext: true},
		{name: "regular user", user: 6, text: "/download", wantNext: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotReason = ""
			called := false
			h := guard(func(tele.Context) error {
				called = true
				return nil
			})
			require.NoError(t, h(newContext(t, tt.user, tt.text)))
			assert.Equal(t, tt.wantNext, called)
			if !tt.wantNext {
				assert.Equal(t, "spam", gotReason)
			}
		})
	}
}

type countingLocker struct {
	mu    sync.Mutex
	calls []int64
}

func (l *countingLocker) Lock(id int64) func() {
	l.mu.Lock()
	l.calls = append(l.calls, id)
	l.mu.Unlock()
	return func() {}
}

func TestSerialize_LocksPerSender(t *testing.T) {
	l := &countingLocker{}
	h := Serialize(l)(func(tele.Context) error { return nil })
	require.NoError(t, h(newContext(t, 77, "hi")))
	assert.Equal(t, []int64{77}, l.calls)
}
