package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/lumiabot/core/telegram/state"
	"github.com/m3rciful/lumiabot/internal/gateway"
	"github.com/m3rciful/lumiabot/internal/model"
)

func TestStartRecordsFirstContact(t *testing.T) {
	f := newFixture(t, LookupRetry)
	ctx := context.Background()

	require.NoError(t, f.h.Start(ctx, command(userID, "")))
	first := f.gw.Last()
	assert.Equal(t, "send", first.Op)
	assert.Equal(t, gateway.HTML, first.Format)
	assert.Contains(t, first.Text, "and welcome to the Lumia Firmware Download Bot!")
	assert.Contains(t, first.Text, `<a href="tg://user?id=100">Ada</a>`)

	u, err := f.store.User(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "@ada", u.Username)
	assert.True(t, u.LastRequested.Equal(f.now))

	require.NoError(t, f.h.Start(ctx, command(userID, "")))
	assert.Contains(t, f.gw.Last().Text, "welcome back")
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t, LookupRetry)
	ctx := context.Background()

	cases := []struct {
		name    string
		payload string
		want    string
	}{
		{"usage", "RM-1085", usageRequest},
		{"unknown type", "RM-0000 059X4T0", msgInvalidType},
		{"unknown code", "RM-1085 000000", msgInvalidCode},
		{"available", "rm-1085 059x4t1", alreadyAvailableText("RM-1085", "059X4T1")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, f.h.Request(ctx, command(userID, tc.payload)))
			assert.Equal(t, tc.want, f.gw.Last().Text)
		})
	}
	for _, op := range f.gw.Ops() {
		assert.NotEqual(t, "post", op)
	}
}

func TestRequestFilesTicket(t *testing.T) {
	f := newFixture(t, LookupRetry)
	require.NoError(t, f.h.Request(context.Background(), command(userID, "RM-1085 059X4T0")))

	sent := f.gw.Sent()
	require.Len(t, sent, 2)
	ticket := sent[0]
	assert.Equal(t, "post", ticket.Op)
	assert.Equal(t, channels.Request, ticket.ChatID)
	assert.Equal(t, gateway.HTML, ticket.Format)
	assert.Contains(t, ticket.Text, "<b>Request ID:</b> <code>req-1</code>")
	assert.Contains(t, ticket.Text, "<b>User ID:</b> <code>100</code>")
	assert.Contains(t, ticket.Text, "<b>Product Code:</b> <code>059X4T0</code>")

	assert.Equal(t, requestAcceptedText("RM-1085", "059X4T0"), sent[1].Text)
	assert.Equal(t, gateway.MarkdownV2, sent[1].Format)
}

func TestUnblockRequest(t *testing.T) {
	f := newFixture(t, LookupRetry)
	ctx := context.Background()

	require.NoError(t, f.h.Unblock(ctx, command(userID, "  ")))
	assert.Equal(t, usageUnblock, f.gw.Last().Text)

	require.NoError(t, f.h.Unblock(ctx, command(userID, "I <3 this bot")))
	sent := f.gw.Sent()
	post := sent[len(sent)-2]
	assert.Equal(t, channels.Unblock, post.ChatID)
	assert.Contains(t, post.Text, "<b>Reason:</b> <code>I &lt;3 this bot</code>")
	assert.Equal(t, msgUnblockReceived, f.gw.Last().Text)
}

func TestAddAdmin(t *testing.T) {
	f := newFixture(t, LookupRetry)
	ctx := context.Background()
	f.gw.Chats[200] = gateway.ChatInfo{ID: 200, FirstName: "Bo", LastName: "Li", Username: "boli"}
	f.gw.Chats[300] = gateway.ChatInfo{ID: 300, FirstName: "Spam"}
	require.NoError(t, f.store.AddBlocked(ctx, model.Blocked{ID: 300, Reason: "spam"}))

	cases := []struct {
		payload string
		want    string
	}{
		{"", usageAddAdmin},
		{"abc", msgInvalidUserID},
		{"999", msgUnknownUserID},
		{"300", msgPromoteBlocked},
		{"200", msgPromoted},
		{"200", msgAlreadyAdmin},
	}
	for _, tc := range cases {
		require.NoError(t, f.h.AddAdmin(ctx, command(superID, tc.payload)))
		assert.Equal(t, tc.want, f.gw.Last().Text, "payload %q", tc.payload)
	}

	admins, err := f.store.Admins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 2)
	assert.Equal(t, model.Admin{ID: 200, FullName: "Bo Li", Username: "@boli"}, admins[1])
}

func TestRemoveAdmin(t *testing.T) {
	f := newFixture(t, LookupRetry)
	ctx := context.Background()

	require.NoError(t, f.h.RemoveAdmin(ctx, command(superID, "1")))
	assert.Equal(t, msgDemoteSuper, f.gw.Last().Text)

	require.NoError(t, f.h.RemoveAdmin(ctx, command(superID, "2")))
	assert.Equal(t, msgDemoted, f.gw.Last().Text)

	require.NoError(t, f.h.RemoveAdmin(ctx, command(superID, "2")))
	assert.Equal(t, msgNotAnAdmin, f.gw.Last().Text)
}

func TestTextUser(t *testing.T) {
	f := newFixture(t, LookupRetry)
	ctx := context.Background()
	f.gw.Chats[userID] = gateway.ChatInfo{ID: userID}

	require.NoError(t, f.h.TextUser(ctx, command(superID, "100")))
	assert.Equal(t, usageTextUser, f.gw.Last().Text)

	require.NoError(t, f.h.TextUser(ctx, command(superID, "100   Hi   there")))
	sent := f.gw.Sent()
	msg := sent[len(sent)-2]
	assert.Equal(t, "send", msg.Op)
	assert.Equal(t, userID, msg.ChatID)
	assert.Equal(t, "Hi there", msg.Text)
	assert.Equal(t, msgUserNotified, f.gw.Last().Text)
}

func TestBlockUserExitsTargetSession(t *testing.T) {
	f := newFixture(t, LookupRetry)
	ctx := context.Background()
	f.gw.Chats[userID] = gateway.ChatInfo{ID: userID, FirstName: "Ada"}
	f.gw.Chats[adminID] = gateway.ChatInfo{ID: adminID}
	require.NoError(t, f.h.Upload(ctx, command(userID, "")))

	require.NoError(t, f.h.BlockUser(ctx, command(superID, "2 nope")))
	assert.Equal(t, msgBlockPrivileged, f.gw.Last().Text)

	require.NoError(t, f.h.BlockUser(ctx, command(superID, "100 Spamming the upload channel")))
	assert.Equal(t, "Successfully blocked the user ID `100`", f.gw.Last().Text)
	assert.Equal(t, state.StateIdle, f.state(t, userID))

	blocked, err := f.store.Blocked(ctx)
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, "Spamming the upload channel", blocked[0].Reason)

	require.NoError(t, f.h.BlockUser(ctx, command(superID, "100 again")))
	assert.Equal(t, msgAlreadyBlocked, f.gw.Last().Text)

	require.NoError(t, f.h.Blocked(ctx, command(userID, ""), blocked[0].Reason))
	assert.Equal(t, blockedNoticeText("Spamming the upload channel"), f.gw.Last().Text)
}

func TestUnblockUser(t *testing.T) {
	f := newFixture(t, LookupRetry)
	ctx := context.Background()

	require.NoError(t, f.h.UnblockUser(ctx, command(adminID, "100")))
	assert.Equal(t, msgNotBlocked, f.gw.Last().Text)

	require.NoError(t, f.store.AddBlocked(ctx, model.Blocked{ID: 100}))
	require.NoError(t, f.h.UnblockUser(ctx, command(adminID, "100")))
	assert.Equal(t, "Successfully unblocked the user ID `100`", f.gw.Last().Text)
}

func TestListings(t *testing.T) {
	f := newFixture(t, LookupRetry)
	ctx := context.Background()

	require.NoError(t, f.h.ListAdmins(ctx, command(adminID, "")))
	assert.Contains(t, f.gw.Last().Text, "UserID: <code>2</code>")

	require.NoError(t, f.h.BlockedUsers(ctx, command(adminID, "")))
	assert.Equal(t, "<b>Blocked Users</b>\nThere are no blocked users yet.", f.gw.Last().Text)

	require.NoError(t, f.h.Administrators(ctx, command(adminID, "")))
	assert.Equal(t, msgAdministrators, f.gw.Last().Text)
}

func TestGetInfo(t *testing.T) {
	f := newFixture(t, LookupRetry)
	f.gw.Chats[userID] = gateway.ChatInfo{ID: userID, FirstName: "Ada", Username: "ada", Type: "private", Bio: "<3"}

	require.NoError(t, f.h.GetInfo(context.Background(), command(adminID, "100")))
	assert.Equal(t,
		"<b>Fullname:</b> <code>Ada</code>\n<b>Username:</b> @ada\n<b>Type:</b> private\n<b>Bio:</b> <code>&lt;3</code>\n",
		f.gw.Last().Text)
}

func TestUsageEscapesPlaceholders(t *testing.T) {
	assert.Equal(t,
		"<b>Usage:</b>\n\t\t/add_admin &lt;UserID&gt;\n\n<b>Example:</b>\n\t\t<code>/add_admin 1234567890</code>",
		usageAddAdmin)
}

func TestFailedDropsFlow(t *testing.T) {
	f := newFixture(t, LookupRetry)
	ctx := context.Background()

	require.NoError(t, f.h.Upload(ctx, command(userID, "")))
	require.Equal(t, StateAwaitingUploadFirmware, f.state(t, userID))

	require.NoError(t, f.h.Failed(ctx, command(userID, "")))
	assert.Equal(t, state.StateIdle, f.state(t, userID))
	last := f.gw.Last()
	assert.Equal(t, msgInternalError, last.Text)
	assert.True(t, last.RemoveKeyboard)
}

func TestSlowDown(t *testing.T) {
	f := newFixture(t, LookupRetry)
	require.NoError(t, f.h.SlowDown(context.Background(), command(userID, "")))
	assert.Equal(t, msgSlowDown, f.gw.Last().Text)
}
