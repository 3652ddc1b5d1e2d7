package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/account-service/internal/domain"
)

// ErrDuplicateUsername is returned when a username is already taken.
var ErrDuplicateUsername = errors.New("username already exists")

const uniqueViolation = "23505"

// AccountRepository defines persistence access for credential records.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	CreateWithPrincipal(ctx context.Context, principal *domain.Principal, account *domain.Account) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	SetActive(ctx context.Context, id string, active bool) error
}

type accountRepository struct {
	db DB
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(db DB) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, principal_id, username, password_hash, active, COALESCE(email, ''), created_at, updated_at`

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE username=$1`
	return scanAccount(r.db.QueryRow(ctx, query, username))
}

// CreateWithPrincipal inserts the principal and its account in one transaction.
func (r *accountRepository) CreateWithPrincipal(ctx context.Context, principal *domain.Principal, account *domain.Account) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	const insertPrincipal = `
        INSERT INTO principals (role, display_name)
        VALUES ($1, $2)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertPrincipal, principal.Role, principal.DisplayName).
		Scan(&principal.ID, &principal.CreatedAt, &principal.UpdatedAt); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("insert principal: %w", err)
	}

	const insertAccount = `
        INSERT INTO accounts (principal_id, username, password_hash, active, email)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''))
        RETURNING id, created_at, updated_at`
	account.PrincipalID = principal.ID
	if err := tx.QueryRow(ctx, insertAccount,
		account.PrincipalID,
		account.Username,
		account.PasswordHash,
		account.Active,
		account.Email,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
		_ = tx.Rollback(ctx)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("insert account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *accountRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	const query = `UPDATE accounts SET password_hash=$1, updated_at=NOW() WHERE id=$2`
	return r.execOne(ctx, query, hash, id)
}

func (r *accountRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE accounts SET active=$1, updated_at=NOW() WHERE id=$2`
	return r.execOne(ctx, query, active, id)
}

func (r *accountRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.PrincipalID,
		&account.Username,
		&account.PasswordHash,
		&account.Active,
		&account.Email,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}
