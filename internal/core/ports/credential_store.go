package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// CredentialStore is the persistence contract for accounts, roles and the
// links between them.
//
// Lookups return domain.ErrAccountNotFound or domain.ErrRoleNotFound when
// nothing matches. Account lookups fill Account.Roles with role names.
// Inserts that collide with a uniqueness constraint return
// domain.ErrEmailTaken or domain.ErrTaxIDTaken.
type CredentialStore interface {
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindAccountByTaxID(ctx context.Context, taxID string) (*domain.Account, error)
	FindAccountByID(ctx context.Context, id string) (*domain.Account, error)
	FindRoleByName(ctx context.Context, name string) (*domain.Role, error)

	InsertAccount(ctx context.Context, account *domain.Account) error
	InsertAccountRole(ctx context.Context, link domain.AccountRole) error

	// WithinTransaction runs fn inside a single commit boundary. Inserts made
	// with the ctx passed to fn become visible together, or not at all when
	// fn returns an error.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// StoreHealth is implemented by credential stores that can report readiness.
type StoreHealth interface {
	Ping(ctx context.Context) error
	CountRoles(ctx context.Context) (int64, error)
}
