package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/observability"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// CookieName is the session cookie carrying the signed access token.
const CookieName = "access_token"

const identityKey = "auth_identity"

// Guard rejections. All map to 401 and carry a short client-facing reason.
var (
	ErrNotAuthenticated = apperrors.NewDomainError("UNAUTHORIZED", "not authenticated", http.StatusUnauthorized, nil)
	ErrInvalidToken     = apperrors.NewDomainError("INVALID_TOKEN", "invalid token", http.StatusUnauthorized, nil)
	ErrTokenExpired     = apperrors.NewDomainError("TOKEN_EXPIRED", "token expired", http.StatusUnauthorized, nil)
)

// TokenDecoder decodes a signed token into claims without judging expiry.
type TokenDecoder interface {
	Decode(token string) (*Claims, error)
}

// AuthMiddleware validates the session cookie and resolves the caller identity.
type AuthMiddleware struct {
	tokens  TokenDecoder
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens TokenDecoder, logger *zap.Logger, metrics *observability.Metrics) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{
		tokens:  tokens,
		logger:  logger.With(zap.String("component", "route_guard")),
		metrics: metrics,
		now:     time.Now,
	}
}

// WithClock replaces the time source, used by tests.
func (m *AuthMiddleware) WithClock(now func() time.Time) *AuthMiddleware {
	m.now = now
	return m
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	identity, err := m.Authenticate(c.Cookies(CookieName))
	if err != nil {
		m.metrics.RecordGuard(apperrors.ToDomainError(err).Code)
		return err
	}
	m.metrics.RecordGuard("AUTHORIZED")

	c.Locals(identityKey, identity)
	return c.Next()
}

// Authenticate maps a raw token to an identity or one of the guard rejections.
func (m *AuthMiddleware) Authenticate(token string) (*domain.Identity, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	claims, err := m.tokens.Decode(token)
	if err != nil {
		m.logger.Warn("token decode failed", zap.Error(err))
		return nil, ErrInvalidToken
	}
	if claims.AccountID == "" || claims.Username == "" || claims.Subject == "" {
		m.logger.Warn("token missing identity claims",
			zap.String("account_id", claims.AccountID),
			zap.String("sub", claims.Subject))
		return nil, ErrInvalidToken
	}

	if claims.ExpiresAt == nil || m.now().Unix() >= claims.ExpiresAt.Unix() {
		return nil, ErrTokenExpired
	}

	email := claims.Email
	if email == "" {
		email = fmt.Sprintf("%s@example.com", claims.Username)
	}

	return &domain.Identity{
		AccountID:   claims.AccountID,
		PrincipalID: claims.Subject,
		Username:    claims.Username,
		Email:       email,
		Role:        domain.Role(claims.Role),
	}, nil
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*domain.Identity)
	return identity, ok
}
