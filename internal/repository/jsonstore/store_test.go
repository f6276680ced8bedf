package jsonstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/lumiabot/internal/errs"
	"github.com/m3rciful/lumiabot/internal/model"
)

func TestStoreUsersRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := Open(t.TempDir())
	require.NoError(t, err)

	users, err := st.Users(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	last := time.Date(2024, 5, 1, 10, 30, 0, 0, time.Local)
	u := model.User{ID: 7, FullName: "Ada", Username: "@ada", TotalRequests: 1, LastRequested: last}
	require.NoError(t, st.UpsertUser(ctx, u))

	u.TotalRequests = 2
	require.NoError(t, st.UpsertUser(ctx, u))

	got, err := st.User(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalRequests)
	assert.True(t, got.LastRequested.Equal(last))

	users, err = st.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = st.User(ctx, 99)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStoreWritesLegacyKeys(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir)
	require.NoError(t, err)

	last := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	require.NoError(t, st.UpsertUser(context.Background(), model.User{ID: 1, FullName: "A", LastRequested: last}))

	data, err := os.ReadFile(filepath.Join(dir, usersFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"UserID": 1`)
	assert.Contains(t, string(data), `"LastRequested": "2024-01-02 03:04:05"`)
}

func TestStoreAdminsGuards(t *testing.T) {
	ctx := context.Background()
	st, err := Open(t.TempDir())
	require.NoError(t, err)

	a := model.Admin{ID: 5, FullName: "Root", Username: "@root"}
	require.NoError(t, st.AddAdmin(ctx, a))
	assert.ErrorIs(t, st.AddAdmin(ctx, a), errs.ErrAlreadyAdmin)

	admins, err := st.Admins(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Admin{a}, admins)

	require.NoError(t, st.RemoveAdmin(ctx, 5))
	assert.ErrorIs(t, st.RemoveAdmin(ctx, 5), errs.ErrNotAdmin)
}

func TestStoreBlockedGuards(t *testing.T) {
	ctx := context.Background()
	st, err := Open(t.TempDir())
	require.NoError(t, err)

	b := model.Blocked{ID: 3, FullName: "Spam", Reason: "flood"}
	require.NoError(t, st.AddBlocked(ctx, b))
	assert.ErrorIs(t, st.AddBlocked(ctx, b), errs.ErrAlreadyBlocked)

	blocked, err := st.Blocked(ctx)
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, "flood", blocked[0].Reason)

	require.NoError(t, st.RemoveBlocked(ctx, 3))
	assert.ErrorIs(t, st.RemoveBlocked(ctx, 3), errs.ErrNotBlocked)
}

func TestStoreResetsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, adminsFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	st, err := Open(dir)
	require.NoError(t, err)

	admins, err := st.Admins(context.Background())
	require.NoError(t, err)
	assert.Empty(t, admins)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestStoreCatalog(t *testing.T) {
	dir := t.TempDir()
	doc := `[
  {"ProductType": "rm-1085", "ProductCodes": [
     {"ProductCode": "059X4T0", "DownloadID": []},
     {"ProductCode": "059x4t1", "DownloadID": [12, 13]}
  ], "Emergency": {"DownloadID": null}},
  {"ProductType": "RM-1104", "ProductCodes": [], "Emergency": {"DownloadID": 77}}
]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, devicesFile), []byte(doc), 0o600))

	st, err := Open(dir)
	require.NoError(t, err)

	catalog, err := st.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	dev, ok := catalog.Device("RM-1085")
	require.True(t, ok)
	code, ok := dev.Code("059X4T1")
	require.True(t, ok)
	assert.Equal(t, []int{12, 13}, code.DownloadRefs)
	assert.Nil(t, dev.EmergencyRef)

	emergency, ok := catalog.Device("rm-1104")
	require.True(t, ok)
	require.NotNil(t, emergency.EmergencyRef)
	assert.Equal(t, 77, *emergency.EmergencyRef)
}
