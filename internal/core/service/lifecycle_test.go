package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
	"github.com/99minutos/identity-service/internal/infrastructure/security"
)

func TestCredentialLifecycle_RegisterLoginReject(t *testing.T) {
	store := newStubStore()
	issuer := security.NewJWTIssuer(security.JWTConfig{
		SigningKey: "lifecycle-test-key",
		Issuer:     "identity-service",
		Audience:   "identity-clients",
	})
	svc := NewAuthService(store, security.NewBcryptHasher(bcrypt.MinCost), issuer, zerolog.Nop())
	ctx := context.Background()

	reg := svc.Register(ctx, ports.RegisterInput{
		Email:    "a@x.com",
		Password: "secret1",
		Name:     "A",
		Role:     "Client",
	})
	require.True(t, reg.OK(), "register: %v", reg.Failure())
	assert.Equal(t, []string{"Client"}, reg.Value().Roles)

	login := svc.Authenticate(ctx, ports.LoginInput{Identifier: "a@x.com", Password: "secret1"})
	require.True(t, login.OK(), "login: %v", login.Failure())

	claims, err := issuer.ParseAccessToken(login.Value().AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.Value().ID, claims.Subject)
	assert.Equal(t, "Client", claims.Roles)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Len(t, login.Value().RefreshToken, 32)

	rejected := svc.Authenticate(ctx, ports.LoginInput{Identifier: "a@x.com", Password: "wrong"})
	require.False(t, rejected.OK())
	assert.Equal(t, domain.KindUnauthorized, rejected.Failure().Kind)
	assert.Equal(t, "invalid credentials.", rejected.Failure().Message)
}

func TestCredentialLifecycle_MissingSigningKeyIsInternal(t *testing.T) {
	store := newStubStore()
	svc := NewAuthService(store, security.NewBcryptHasher(bcrypt.MinCost), security.NewJWTIssuer(security.JWTConfig{}), zerolog.Nop())
	ctx := context.Background()

	require.True(t, svc.Register(ctx, ports.RegisterInput{Email: "k@x.com", Password: "secret1", Name: "K"}).OK())

	res := svc.Authenticate(ctx, ports.LoginInput{Identifier: "k@x.com", Password: "secret1"})
	require.False(t, res.OK())
	assert.Equal(t, domain.KindInternal, res.Failure().Kind)
	assert.ErrorIs(t, res.Failure(), security.ErrSigningKeyMissing)
	assert.Empty(t, res.Value().AccessToken)
}
