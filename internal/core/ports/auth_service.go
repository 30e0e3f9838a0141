package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer to Register.
type RegisterInput struct {
	Email    string
	TaxID    string // optional
	Password string
	Name     string
	Role     string // optional, defaults to domain.DefaultRole
}

// LoginInput carries an email or tax id plus the plaintext password.
type LoginInput struct {
	Identifier string
	Password   string
}

// AuthService defines the credential lifecycle operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) domain.Result[domain.AccountView]
	Authenticate(ctx context.Context, in LoginInput) domain.Result[domain.AuthResult]
	GetProfile(ctx context.Context, accountID string) domain.Result[domain.AccountView]
}
