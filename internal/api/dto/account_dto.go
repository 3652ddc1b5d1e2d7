package dto

import "github.com/spec-kit/account-service/internal/domain"

// ProvisionAccountRequest payload for account creation.
type ProvisionAccountRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=64"`
	Password    string `json:"password" validate:"required,min=8,max=256"`
	Email       string `json:"email" validate:"omitempty,email,max=254"`
	Role        string `json:"role" validate:"required,oneof=ADMIN STAFF MEMBER"`
	DisplayName string `json:"displayName" validate:"max=128"`
}

// SetActiveRequest toggles account activation.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// AccountResponse describes a provisioned account without its hash.
type AccountResponse struct {
	ID          string  `json:"id"`
	PrincipalID string  `json:"principalId"`
	Username    string  `json:"username"`
	Email       *string `json:"email"`
	Role        string  `json:"role"`
	Active      bool    `json:"active"`
}

// AccountFromDomain maps an account and its principal.
func AccountFromDomain(account *domain.Account, principal *domain.Principal) AccountResponse {
	resp := AccountResponse{
		ID:          account.ID,
		PrincipalID: account.PrincipalID,
		Username:    account.Username,
		Active:      account.Active,
	}
	if account.Email != "" {
		email := account.Email
		resp.Email = &email
	}
	if principal != nil {
		resp.Role = string(principal.Role)
	}
	return resp
}
