package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/service"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// AccountsHandler exposes administrator account management.
type AccountsHandler struct {
	accounts *service.AccountService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accounts *service.AccountService) *AccountsHandler {
	return &AccountsHandler{accounts: accounts}
}

// Create handles POST /api/accounts.
func (h *AccountsHandler) Create(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return auth.ErrNotAuthenticated
	}

	var req dto.ProvisionAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	account, principal, err := h.accounts.Provision(c.UserContext(), identity, service.ProvisionInput{
		Username:    req.Username,
		Password:    req.Password,
		Email:       req.Email,
		Role:        domain.Role(req.Role),
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"account": dto.AccountFromDomain(account, principal)})
}

// SetActive handles PATCH /api/accounts/:id/active.
func (h *AccountsHandler) SetActive(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return auth.ErrNotAuthenticated
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NewValidationError("invalid account id", map[string]any{"id": c.Params("id")})
	}

	var req dto.SetActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	if err := h.accounts.SetActive(c.UserContext(), identity, id.String(), *req.Active); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
