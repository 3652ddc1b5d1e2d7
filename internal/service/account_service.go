package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// ProvisionInput describes a new account and its principal.
type ProvisionInput struct {
	Username    string
	Password    string
	Email       string
	Role        domain.Role
	DisplayName string
}

// AccountService manages credential records on behalf of administrators.
type AccountService struct {
	accounts   repository.AccountRepository
	hasher     auth.PasswordHasher
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AccountDependencies encapsulates collaborators for account management.
type AccountDependencies struct {
	AccountRepo repository.AccountRepository
	Hasher      auth.PasswordHasher
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAccountService constructs the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	hasher := deps.Hasher
	if hasher == nil {
		hasher = auth.NewArgon2idHasher()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		accounts:   deps.AccountRepo,
		hasher:     hasher,
		dispatcher: deps.Dispatcher,
		logger:     logger.With(zap.String("component", "account_service")),
	}
}

func requireAdmin(actor *domain.Identity) error {
	if !actor.HasRole(domain.RoleAdmin) {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// Provision creates a principal and an active account for it.
func (s *AccountService) Provision(ctx context.Context, actor *domain.Identity, in ProvisionInput) (*domain.Account, *domain.Principal, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, nil, err
	}
	return s.provision(ctx, actorOf(actor), in)
}

func (s *AccountService) provision(ctx context.Context, actor events.Actor, in ProvisionInput) (*domain.Account, *domain.Principal, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return nil, nil, apperrors.NewValidationError("username required", nil)
	}
	if !in.Role.Valid() {
		return nil, nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(in.Role)})
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmptyPassword) {
			return nil, nil, apperrors.NewValidationError("password required", nil)
		}
		return nil, nil, apperrors.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	principal := &domain.Principal{Role: in.Role, DisplayName: in.DisplayName}
	account := &domain.Account{
		Username:     in.Username,
		PasswordHash: hash,
		Active:       true,
		Email:        strings.TrimSpace(in.Email),
	}
	if err := s.accounts.CreateWithPrincipal(ctx, principal, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, nil, apperrors.NewConflict("username already exists", map[string]any{"username": in.Username})
		}
		s.logger.Error("provision account failed", zap.String("username", in.Username), zap.Error(err))
		return nil, nil, apperrors.NewInternalError(err)
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventAccountProvisioned, actor, events.AccountProvisionedPayload{
		AccountID:   account.ID,
		PrincipalID: principal.ID,
		Username:    account.Username,
		Role:        string(principal.Role),
	}))
	return account, principal, nil
}

// SetActive activates or deactivates an account. Admins cannot deactivate themselves.
func (s *AccountService) SetActive(ctx context.Context, actor *domain.Identity, accountID string, active bool) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if !active && actor.AccountID == accountID {
		return apperrors.NewConflict("cannot deactivate own account", nil)
	}
	if err := s.accounts.SetActive(ctx, accountID, active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("account", map[string]any{"account_id": accountID})
		}
		s.logger.Error("set account activation failed", zap.String("account_id", accountID), zap.Error(err))
		return apperrors.NewInternalError(err)
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventAccountActivated, actorOf(actor),
		events.AccountActivationPayload{AccountID: accountID, Active: active}))
	return nil
}

// EnsureAdmin creates the bootstrap administrator unless the username already exists.
// It reports whether an account was created.
func (s *AccountService) EnsureAdmin(ctx context.Context, username, password, email string) (bool, error) {
	_, err := s.accounts.GetByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	_, _, err = s.provision(ctx, events.Actor{Username: "system"}, ProvisionInput{
		Username:    username,
		Password:    password,
		Email:       email,
		Role:        domain.RoleAdmin,
		DisplayName: "Administrator",
	})
	if err != nil {
		return false, err
	}
	s.logger.Info("seeded admin account", zap.String("username", username))
	return true, nil
}

func actorOf(identity *domain.Identity) events.Actor {
	if identity == nil {
		return events.Actor{}
	}
	return events.Actor{AccountID: identity.AccountID, Username: identity.Username}
}
