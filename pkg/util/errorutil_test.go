package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "domain error passes through wrapping",
			err:        fmt.Errorf("guard: %w", NewUnauthorized("invalid token")),
			wantCode:   "UNAUTHORIZED",
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "invalid token",
		},
		{
			name:       "fiber client error keeps message",
			err:        fiber.NewError(http.StatusBadRequest, "invalid payload"),
			wantCode:   "BAD_REQUEST",
			wantStatus: http.StatusBadRequest,
			wantMsg:    "invalid payload",
		},
		{
			name:       "fiber server error is generic",
			err:        fiber.NewError(http.StatusServiceUnavailable, "pool exhausted"),
			wantCode:   "INTERNAL_ERROR",
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "internal server error",
		},
		{
			name:       "no rows maps to not found",
			err:        pgx.ErrNoRows,
			wantCode:   "NOT_FOUND",
			wantStatus: http.StatusNotFound,
			wantMsg:    "resource not found",
		},
		{
			name:       "unknown error hides detail",
			err:        errors.New("dial tcp 10.0.0.1:5432: connection refused"),
			wantCode:   "INTERNAL_ERROR",
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.HTTPStatus)
			assert.Equal(t, tt.wantMsg, got.Message)
		})
	}

	assert.Nil(t, ToDomainError(nil))
}

func TestDomainErrorIs(t *testing.T) {
	sentinel := NewDomainError("TOKEN_EXPIRED", "token expired", http.StatusUnauthorized, nil)
	wrapped := fmt.Errorf("decode: %w", sentinel)

	assert.ErrorIs(t, wrapped, sentinel)
	assert.NotErrorIs(t, wrapped, NewUnauthorized("token expired"))
}

func TestDomainErrorMessage(t *testing.T) {
	err := NewInternalError(errors.New("boom"))
	assert.Equal(t, "internal server error: boom", err.Error())
	assert.ErrorContains(t, errors.Unwrap(err), "boom")
}
