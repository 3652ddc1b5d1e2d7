package dto

import "github.com/spec-kit/account-service/internal/domain"

// LogoutMessage is returned on every logout.
const LogoutMessage = "ログアウトしました"

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=256"`
}

// LoginResponse carries the signed access token.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
}

// LogoutResponse is the fixed logout acknowledgement.
type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ChangePasswordRequest payload for password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required,max=256"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=256,nefield=CurrentPassword"`
}

// UserResponse is the current-user shape.
type UserResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	PrincipalID string `json:"principalId"`
}

// MeResponse wraps the current user.
type MeResponse struct {
	User UserResponse `json:"user"`
}

// UserFromIdentity maps an authenticated identity field by field.
func UserFromIdentity(identity *domain.Identity) UserResponse {
	return UserResponse{
		ID:          identity.AccountID,
		Username:    identity.Username,
		Email:       identity.Email,
		Role:        string(identity.Role),
		PrincipalID: identity.PrincipalID,
	}
}
