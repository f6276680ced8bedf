package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/lumiabot/internal/errs"
	"github.com/m3rciful/lumiabot/internal/model"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestStore_Catalog(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT product_type, emergency_download_id FROM devices").
		WillReturnRows(sqlmock.NewRows([]string{"product_type", "emergency_download_id"}).
			AddRow("RM-1085", nil).
			AddRow("RM-1104", 77))
	mock.ExpectQuery("SELECT product_type, product_code, download_ids FROM product_codes").
		WillReturnRows(sqlmock.NewRows([]string{"product_type", "product_code", "download_ids"}).
			AddRow("RM-1085", "059X4T0", "{}").
			AddRow("RM-1085", "059X4T1", "{12,13}"))

	catalog, err := st.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	dev, ok := catalog.Device("RM-1085")
	require.True(t, ok)
	assert.Equal(t, []string{"059X4T1"}, dev.AvailableCodes())
	assert.Nil(t, dev.EmergencyRef)

	emergency, ok := catalog.Device("RM-1104")
	require.True(t, ok)
	require.NotNil(t, emergency.EmergencyRef)
	assert.Equal(t, 77, *emergency.EmergencyRef)
	assert.Empty(t, emergency.Codes)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_User(t *testing.T) {
	last := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		rows      *sqlmock.Rows
		queryErr  error
		wantErr   error
		wantTotal int
	}{
		{
			name: "found",
			rows: sqlmock.NewRows([]string{"user_id", "full_name", "username", "is_bot", "total_requests", "last_requested"}).
				AddRow(7, "Ada", "@ada", false, 2, last),
			wantTotal: 2,
		},
		{
			name:     "missing",
			queryErr: sql.ErrNoRows,
			wantErr:  errs.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, mock := newMockStore(t)
			q := mock.ExpectQuery("FROM users WHERE user_id = \\$1").WithArgs(int64(7))
			if tt.queryErr != nil {
				q.WillReturnError(tt.queryErr)
			} else {
				q.WillReturnRows(tt.rows)
			}

			u, err := st.User(context.Background(), 7)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantTotal, u.TotalRequests)
				assert.True(t, u.LastRequested.Equal(last))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_UpsertUser(t *testing.T) {
	st, mock := newMockStore(t)
	last := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	u := model.User{ID: 7, FullName: "Ada", Username: "@ada", TotalRequests: 1, LastRequested: last}

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.FullName, u.Username, u.IsBot, u.TotalRequests, u.LastRequested).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, st.UpsertUser(context.Background(), u))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AdminGuards(t *testing.T) {
	tests := []struct {
		name    string
		run     func(*Store) error
		expect  func(sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "add admin",
			run: func(s *Store) error {
				return s.AddAdmin(context.Background(), model.Admin{ID: 5, FullName: "Root"})
			},
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec("INSERT INTO admins").WithArgs(int64(5), "Root", "").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "add existing admin",
			run: func(s *Store) error {
				return s.AddAdmin(context.Background(), model.Admin{ID: 5, FullName: "Root"})
			},
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec("INSERT INTO admins").WithArgs(int64(5), "Root", "").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: errs.ErrAlreadyAdmin,
		},
		{
			name: "remove missing admin",
			run:  func(s *Store) error { return s.RemoveAdmin(context.Background(), 5) },
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec("DELETE FROM admins").WithArgs(int64(5)).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: errs.ErrNotAdmin,
		},
		{
			name: "block existing",
			run: func(s *Store) error {
				return s.AddBlocked(context.Background(), model.Blocked{ID: 3, Reason: "spam"})
			},
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec("INSERT INTO blocked_users").WithArgs(int64(3), "", "", "spam").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: errs.ErrAlreadyBlocked,
		},
		{
			name: "unblock",
			run:  func(s *Store) error { return s.RemoveBlocked(context.Background(), 3) },
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec("DELETE FROM blocked_users").WithArgs(int64(3)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "unblock missing",
			run:  func(s *Store) error { return s.RemoveBlocked(context.Background(), 3) },
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec("DELETE FROM blocked_users").WithArgs(int64(3)).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: errs.ErrNotBlocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, mock := newMockStore(t)
			tt.expect(mock)
			err := tt.run(st)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_SeedCatalogRollsBack(t *testing.T) {
	st, mock := newMockStore(t)
	ref := 9
	catalog := model.Catalog{{
		ProductType:  "RM-1085",
		Codes:        []model.ProductCode{{Code: "059X4T1", DownloadRefs: []int{1}}},
		EmergencyRef: &ref,
	}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO devices").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO product_codes").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := st.SeedCatalog(context.Background(), catalog)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SeedCatalogCommits(t *testing.T) {
	st, mock := newMockStore(t)
	catalog := model.Catalog{{
		ProductType: "RM-1085",
		Codes:       []model.ProductCode{{Code: "059X4T0"}, {Code: "059X4T1", DownloadRefs: []int{1, 2}}},
	}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO devices").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO product_codes").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO product_codes").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, st.SeedCatalog(context.Background(), catalog))
	assert.NoError(t, mock.ExpectationsWereMet())
}
