package repository

import (
	"context"

	"github.com/spec-kit/account-service/internal/domain"
)

// PrincipalRepository reads authorization subjects.
type PrincipalRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Principal, error)
}

type principalRepository struct {
	db DB
}

// NewPrincipalRepository returns a Postgres-backed implementation.
func NewPrincipalRepository(db DB) PrincipalRepository {
	return &principalRepository{db: db}
}

func (r *principalRepository) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	const query = `
        SELECT id, role, display_name, created_at, updated_at
        FROM principals WHERE id=$1`

	var principal domain.Principal
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&principal.ID,
		&principal.Role,
		&principal.DisplayName,
		&principal.CreatedAt,
		&principal.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &principal, nil
}
