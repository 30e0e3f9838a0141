package service

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// RoleResolver maps a role name to its stored record. Matching is exact:
// no case folding and no default substitution.
type RoleResolver struct {
	store ports.CredentialStore
}

func NewRoleResolver(store ports.CredentialStore) *RoleResolver {
	return &RoleResolver{store: store}
}

// Resolve returns domain.ErrRoleNotFound when no role carries the name.
func (r *RoleResolver) Resolve(ctx context.Context, name string) (*domain.Role, error) {
	if name == "" {
		return nil, domain.ErrRoleNotFound
	}
	return r.store.FindRoleByName(ctx, name)
}
