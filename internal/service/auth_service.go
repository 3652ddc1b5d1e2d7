package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/observability"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

var (
	// ErrInvalidCredentials covers unknown usernames, inactive accounts and wrong passwords alike.
	ErrInvalidCredentials = apperrors.NewDomainError("INVALID_CREDENTIALS", "invalid credentials", http.StatusUnauthorized, nil)
	// ErrTooManyAttempts is returned while a username is throttled.
	ErrTooManyAttempts = apperrors.NewTooManyRequests("too many login attempts")
)

// Failure reasons recorded in audit events only.
const (
	reasonUnknownUsername = "unknown_username"
	reasonInactive        = "inactive_account"
	reasonBadPassword     = "bad_password"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Identity    *domain.Identity
}

// AuthService coordinates credential verification and token issuance.
type AuthService struct {
	accounts   repository.AccountRepository
	principals repository.PrincipalRepository
	hasher     auth.PasswordHasher
	tokenMgr   *auth.TokenManager
	limiter    LoginLimiter
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
// Hasher, Limiter, Dispatcher and Metrics are optional.
type AuthDependencies struct {
	AccountRepo   repository.AccountRepository
	PrincipalRepo repository.PrincipalRepository
	Hasher        auth.PasswordHasher
	Limiter       LoginLimiter
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	hasher := deps.Hasher
	if hasher == nil {
		hasher = auth.NewArgon2idHasher()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		accounts:   deps.AccountRepo,
		principals: deps.PrincipalRepo,
		hasher:     hasher,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL()),
		limiter:    deps.Limiter,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger.With(zap.String("component", "auth_service")),
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// ValidateCredentials returns the identity for a matching active account.
// Every expected rejection is ErrInvalidCredentials; other errors are internal.
func (s *AuthService) ValidateCredentials(ctx context.Context, username, password string) (*domain.Identity, error) {
	identity, _, err := s.validate(ctx, username, password)
	return identity, err
}

func (s *AuthService) validate(ctx context.Context, username, password string) (*domain.Identity, string, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reasonUnknownUsername, ErrInvalidCredentials
		}
		return nil, "", s.internal("lookup account", err)
	}
	if !account.Active {
		return nil, reasonInactive, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return nil, "", s.internal("verify password", err, zap.String("account_id", account.ID))
	}
	if !ok {
		return nil, reasonBadPassword, ErrInvalidCredentials
	}

	s.upgradeHash(ctx, account, password)

	identity := &domain.Identity{
		AccountID:   account.ID,
		PrincipalID: account.PrincipalID,
		Username:    account.Username,
		Email:       account.Email,
	}

	principal, err := s.principals.GetByID(ctx, account.PrincipalID)
	switch {
	case err == nil:
		identity.Role = principal.Role
	case errors.Is(err, pgx.ErrNoRows):
		s.logger.Warn("account references missing principal",
			zap.String("account_id", account.ID),
			zap.String("principal_id", account.PrincipalID))
	default:
		return nil, "", s.internal("lookup principal", err, zap.String("principal_id", account.PrincipalID))
	}

	return identity, "", nil
}

// Login verifies the credentials and mints a signed access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	actor := events.Actor{Username: username}

	if s.limiter != nil {
		blocked, err := s.limiter.Blocked(ctx, username)
		if err != nil {
			s.logger.Warn("login limiter unavailable", zap.Error(err))
		} else if blocked {
			s.metrics.RecordLogin("throttled")
			s.publish(ctx, events.New(events.EventLoginThrottled, actor, nil))
			return nil, ErrTooManyAttempts
		}
	}

	identity, reason, err := s.validate(ctx, username, password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			s.metrics.RecordLogin("error")
			return nil, err
		}
		s.metrics.RecordLogin("invalid_credentials")
		s.recordFailure(ctx, username)
		s.publish(ctx, events.New(events.EventLoginFailed, actor, events.LoginFailedPayload{Reason: reason}))
		return nil, ErrInvalidCredentials
	}

	token, issuedAt, expiresAt, err := s.tokenMgr.Issue(identity)
	if err != nil {
		s.metrics.RecordLogin("error")
		return nil, s.internal("issue token", err, zap.String("account_id", identity.AccountID))
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, username); err != nil {
			s.logger.Warn("reset login limiter", zap.Error(err))
		}
	}

	s.metrics.RecordLogin("success")
	actor.AccountID = identity.AccountID
	s.publish(ctx, events.New(events.EventLoginSucceeded, actor, nil))

	return &LoginResult{
		AccessToken: token,
		IssuedAt:    issuedAt,
		ExpiresAt:   expiresAt,
		Identity:    identity,
	}, nil
}

// Logout records the event. Tokens stay valid until they expire; only the cookie is cleared.
func (s *AuthService) Logout(ctx context.Context, identity *domain.Identity) {
	actor := events.Actor{}
	if identity != nil {
		actor.AccountID = identity.AccountID
		actor.Username = identity.Username
	}
	s.publish(ctx, events.New(events.EventLogout, actor, nil))
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, identity *domain.Identity, currentPassword, newPassword string) error {
	if identity == nil {
		return auth.ErrNotAuthenticated
	}
	account, err := s.accounts.GetByID(ctx, identity.AccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.ErrNotAuthenticated
		}
		return s.internal("lookup account", err, zap.String("account_id", identity.AccountID))
	}
	if !account.Active {
		return auth.ErrNotAuthenticated
	}

	ok, err := s.hasher.Verify(currentPassword, account.PasswordHash)
	if err != nil {
		return s.internal("verify password", err, zap.String("account_id", account.ID))
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, auth.ErrEmptyPassword) {
			return apperrors.NewValidationError("new password required", nil)
		}
		return s.internal("hash password", err)
	}
	if err := s.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return s.internal("update password", err, zap.String("account_id", account.ID))
	}

	s.publish(ctx, events.New(events.EventPasswordChanged,
		events.Actor{AccountID: account.ID, Username: account.Username}, nil))
	return nil
}

func (s *AuthService) upgradeHash(ctx context.Context, account *domain.Account, password string) {
	if !s.hasher.NeedsUpgrade(account.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.accounts.UpdatePasswordHash(ctx, account.ID, hash)
	}
	if err != nil {
		s.logger.Warn("password hash upgrade failed", zap.String("account_id", account.ID), zap.Error(err))
		return
	}
	account.PasswordHash = hash
}

func (s *AuthService) recordFailure(ctx context.Context, username string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.RecordFailure(ctx, username); err != nil {
		s.logger.Warn("record login failure", zap.Error(err))
	}
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, s.logger, event)
}

func (s *AuthService) internal(action string, err error, fields ...zap.Field) error {
	fields = append(fields, zap.String("action", action), zap.Error(err))
	s.logger.Error("auth operation failed", fields...)
	return apperrors.NewInternalError(fmt.Errorf("%s: %w", action, err))
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
