package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

var adminActor = &domain.Identity{AccountID: "acc-admin", Username: "admin", Role: domain.RoleAdmin}

func statusOf(err error) int {
	return apperrors.ToDomainError(err).HTTPStatus
}

func TestAccountServiceProvision(t *testing.T) {
	ctx := context.Background()

	t.Run("admin creates account", func(t *testing.T) {
		repo := new(MockAccountRepository)
		svc := NewAccountService(AccountDependencies{AccountRepo: repo})

		repo.On("CreateWithPrincipal", ctx,
			mock.MatchedBy(func(p *domain.Principal) bool { return p.Role == domain.RoleStaff }),
			mock.MatchedBy(func(a *domain.Account) bool { return a.Username == "alice" && a.Active }),
		).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Principal).ID = "prn-9"
			account := args.Get(2).(*domain.Account)
			account.ID = "acc-9"
			account.PrincipalID = "prn-9"
		}).Return(nil)

		account, principal, err := svc.Provision(ctx, adminActor, ProvisionInput{
			Username: "  alice ",
			Password: "s3cret-pass",
			Email:    "alice@corp.test",
			Role:     domain.RoleStaff,
		})
		require.NoError(t, err)
		assert.Equal(t, "acc-9", account.ID)
		assert.Equal(t, "prn-9", principal.ID)

		ok, err := auth.NewArgon2idHasher().Verify("s3cret-pass", account.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
		repo.AssertExpectations(t)
	})

	t.Run("non admin forbidden", func(t *testing.T) {
		repo := new(MockAccountRepository)
		svc := NewAccountService(AccountDependencies{AccountRepo: repo})

		_, _, err := svc.Provision(ctx, &domain.Identity{Role: domain.RoleMember}, ProvisionInput{Username: "x", Password: "y", Role: domain.RoleMember})
		assert.Equal(t, http.StatusForbidden, statusOf(err))
		repo.AssertNotCalled(t, "CreateWithPrincipal", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		svc := NewAccountService(AccountDependencies{AccountRepo: new(MockAccountRepository)})

		_, _, err := svc.Provision(ctx, adminActor, ProvisionInput{Username: "x", Password: "y", Role: "ROOT"})
		assert.Equal(t, http.StatusBadRequest, statusOf(err))
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		repo := new(MockAccountRepository)
		svc := NewAccountService(AccountDependencies{AccountRepo: repo})
		repo.On("CreateWithPrincipal", ctx, mock.Anything, mock.Anything).Return(repository.ErrDuplicateUsername)

		_, _, err := svc.Provision(ctx, adminActor, ProvisionInput{Username: "admin", Password: "y", Role: domain.RoleAdmin})
		assert.Equal(t, http.StatusConflict, statusOf(err))
	})

	t.Run("store failure is internal", func(t *testing.T) {
		repo := new(MockAccountRepository)
		svc := NewAccountService(AccountDependencies{AccountRepo: repo})
		repo.On("CreateWithPrincipal", ctx, mock.Anything, mock.Anything).Return(errors.New("tx aborted"))

		_, _, err := svc.Provision(ctx, adminActor, ProvisionInput{Username: "bob", Password: "y", Role: domain.RoleMember})
		assert.Equal(t, http.StatusInternalServerError, statusOf(err))
	})
}

func TestAccountServiceSetActive(t *testing.T) {
	ctx := context.Background()

	t.Run("deactivates other account", func(t *testing.T) {
		repo := new(MockAccountRepository)
		repo.On("SetActive", ctx, "acc-2", false).Return(nil)

		err := NewAccountService(AccountDependencies{AccountRepo: repo}).SetActive(ctx, adminActor, "acc-2", false)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("cannot deactivate self", func(t *testing.T) {
		repo := new(MockAccountRepository)

		err := NewAccountService(AccountDependencies{AccountRepo: repo}).SetActive(ctx, adminActor, "acc-admin", false)
		assert.Equal(t, http.StatusConflict, statusOf(err))
	})

	t.Run("missing account", func(t *testing.T) {
		repo := new(MockAccountRepository)
		repo.On("SetActive", ctx, "acc-404", true).Return(pgx.ErrNoRows)

		err := NewAccountService(AccountDependencies{AccountRepo: repo}).SetActive(ctx, adminActor, "acc-404", true)
		assert.Equal(t, http.StatusNotFound, statusOf(err))
	})
}

func TestAccountServiceEnsureAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("existing admin untouched", func(t *testing.T) {
		repo := new(MockAccountRepository)
		repo.On("GetByUsername", ctx, "admin").Return(&domain.Account{ID: "acc-1"}, nil)

		created, err := NewAccountService(AccountDependencies{AccountRepo: repo}).EnsureAdmin(ctx, "admin", "admin123", "")
		require.NoError(t, err)
		assert.False(t, created)
		repo.AssertNotCalled(t, "CreateWithPrincipal", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("creates admin principal", func(t *testing.T) {
		repo := new(MockAccountRepository)
		repo.On("GetByUsername", ctx, "admin").Return(nil, pgx.ErrNoRows)
		repo.On("CreateWithPrincipal", ctx,
			mock.MatchedBy(func(p *domain.Principal) bool { return p.Role == domain.RoleAdmin }),
			mock.MatchedBy(func(a *domain.Account) bool { return a.Username == "admin" }),
		).Return(nil)

		created, err := NewAccountService(AccountDependencies{AccountRepo: repo}).EnsureAdmin(ctx, "admin", "admin123", "")
		require.NoError(t, err)
		assert.True(t, created)
		repo.AssertExpectations(t)
	})

	t.Run("lookup failure", func(t *testing.T) {
		repo := new(MockAccountRepository)
		repo.On("GetByUsername", ctx, "admin").Return(nil, errors.New("timeout"))

		_, err := NewAccountService(AccountDependencies{AccountRepo: repo}).EnsureAdmin(ctx, "admin", "admin123", "")
		assert.ErrorContains(t, err, "timeout")
	})
}
