package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/account-service/internal/domain"
)

var accountRowColumns = []string{"id", "principal_id", "username", "password_hash", "active", "email", "created_at", "updated_at"}

func TestAccountRepositoryGetByUsername(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name      string
		username  string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      *domain.Account
		wantErr   error
	}{
		{
			name:     "found",
			username: "admin",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(accountRowColumns).
					AddRow("acc-1", "prn-1", "admin", "$argon2id$hash", true, "", now, now)
				mock.ExpectQuery(`SELECT .+ FROM accounts WHERE username=\$1`).
					WithArgs("admin").
					WillReturnRows(rows)
			},
			want: &domain.Account{
				ID:           "acc-1",
				PrincipalID:  "prn-1",
				Username:     "admin",
				PasswordHash: "$argon2id$hash",
				Active:       true,
				CreatedAt:    now,
				UpdatedAt:    now,
			},
		},
		{
			name:     "not found",
			username: "ghost",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .+ FROM accounts WHERE username=\$1`).
					WithArgs("ghost").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: pgx.ErrNoRows,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewAccountRepository(mock)
			got, err := repo.GetByUsername(context.Background(), tt.username)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAccountRepositoryCreateWithPrincipal(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("commits both rows", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO principals`).
			WithArgs(domain.RoleAdmin, "Administrator").
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("prn-1", now, now))
		mock.ExpectQuery(`INSERT INTO accounts`).
			WithArgs("prn-1", "admin", "hash", true, "admin@corp.test").
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("acc-1", now, now))
		mock.ExpectCommit()

		principal := &domain.Principal{Role: domain.RoleAdmin, DisplayName: "Administrator"}
		account := &domain.Account{Username: "admin", PasswordHash: "hash", Active: true, Email: "admin@corp.test"}

		err = NewAccountRepository(mock).CreateWithPrincipal(context.Background(), principal, account)
		require.NoError(t, err)
		assert.Equal(t, "prn-1", principal.ID)
		assert.Equal(t, "acc-1", account.ID)
		assert.Equal(t, "prn-1", account.PrincipalID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate username rolls back", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO principals`).
			WithArgs(domain.RoleMember, "").
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("prn-2", now, now))
		mock.ExpectQuery(`INSERT INTO accounts`).
			WithArgs("prn-2", "taken", "hash", true, "").
			WillReturnError(&pgconn.PgError{Code: "23505"})
		mock.ExpectRollback()

		err = NewAccountRepository(mock).CreateWithPrincipal(context.Background(),
			&domain.Principal{Role: domain.RoleMember},
			&domain.Account{Username: "taken", PasswordHash: "hash", Active: true})
		assert.ErrorIs(t, err, ErrDuplicateUsername)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("principal insert failure rolls back", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO principals`).
			WithArgs(domain.RoleMember, "").
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		err = NewAccountRepository(mock).CreateWithPrincipal(context.Background(),
			&domain.Principal{Role: domain.RoleMember},
			&domain.Account{Username: "x", PasswordHash: "hash"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insert principal")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepositoryUpdates(t *testing.T) {
	t.Run("update password hash", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE accounts SET password_hash=\$1`).
			WithArgs("new-hash", "acc-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewAccountRepository(mock).UpdatePasswordHash(context.Background(), "acc-1", "new-hash"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("set active on missing account", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE accounts SET active=\$1`).
			WithArgs(false, "missing").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = NewAccountRepository(mock).SetActive(context.Background(), "missing", false)
		assert.ErrorIs(t, err, pgx.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPrincipalRepositoryGetByID(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, role, display_name, created_at, updated_at\s+FROM principals WHERE id=\$1`).
		WithArgs("prn-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "role", "display_name", "created_at", "updated_at"}).
			AddRow("prn-1", domain.RoleAdmin, "Administrator", now, now))

	got, err := NewPrincipalRepository(mock).GetByID(context.Background(), "prn-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, got.Role)
	assert.Equal(t, "Administrator", got.DisplayName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
