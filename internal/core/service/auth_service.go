package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// AuthService implements registration, authentication and profile lookup.
// It holds no mutable request state and is safe for concurrent use.
type AuthService struct {
	store  ports.CredentialStore
	roles  *RoleResolver
	hasher ports.PasswordHasher
	tokens ports.TokenIssuer
	log    zerolog.Logger
	now    func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(
	store ports.CredentialStore,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		store:  store,
		roles:  NewRoleResolver(store),
		hasher: hasher,
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}
}

// Register creates an account holding exactly one role. The email pre-check
// only produces a friendly message; the store's unique constraints decide
// concurrent races and are translated to the same outcome.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) domain.Result[domain.AccountView] {
	// 1. Uniqueness pre-checks.
	_, err := s.store.FindAccountByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return domain.Fail[domain.AccountView](domain.KindValidation, domain.MsgEmailInUse)
	case !errors.Is(err, domain.ErrAccountNotFound):
		return internalFailure[domain.AccountView](s.log, "find account by email", err)
	}

	if in.TaxID != "" {
		_, err := s.store.FindAccountByTaxID(ctx, in.TaxID)
		switch {
		case err == nil:
			return domain.Fail[domain.AccountView](domain.KindValidation, domain.MsgTaxIDInUse)
		case !errors.Is(err, domain.ErrAccountNotFound):
			return internalFailure[domain.AccountView](s.log, "find account by tax id", err)
		}
	}

	// 2. Role resolution.
	roleName := in.Role
	if roleName == "" {
		roleName = domain.DefaultRole
	}
	role, err := s.roles.Resolve(ctx, roleName)
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			return domain.Fail[domain.AccountView](domain.KindValidation, domain.MsgRoleNotFound)
		}
		return internalFailure[domain.AccountView](s.log, "resolve role", err)
	}

	// 3. Hashing.
	digest, err := s.hasher.Hash(in.Password)
	if errors.Is(err, domain.ErrPasswordTooLong) {
		return domain.Fail[domain.AccountView](domain.KindValidation, domain.MsgPasswordTooLong)
	}
	if err != nil {
		return internalFailure[domain.AccountView](s.log, "hash password", err)
	}

	// 4. Construction.
	account := &domain.Account{
		ID:           uuid.NewString(),
		Email:        in.Email,
		TaxID:        in.TaxID,
		PasswordHash: digest,
		Name:         in.Name,
		CreatedAt:    s.now().UTC(),
		Roles:        []string{role.Name},
	}
	link := domain.AccountRole{AccountID: account.ID, RoleID: role.ID}

	// 5. Atomic persistence.
	err = s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.InsertAccount(ctx, account); err != nil {
			return err
		}
		return s.store.InsertAccountRole(ctx, link)
	})
	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		return domain.Fail[domain.AccountView](domain.KindValidation, domain.MsgEmailInUse)
	case errors.Is(err, domain.ErrTaxIDTaken):
		return domain.Fail[domain.AccountView](domain.KindValidation, domain.MsgTaxIDInUse)
	case err != nil:
		return internalFailure[domain.AccountView](s.log, "persist account", err)
	}

	s.log.Info().Str("account_id", account.ID).Str("role", role.Name).Msg("account registered")

	return domain.Success(account.View())
}

// Authenticate resolves the account by email when the identifier contains
// "@", by tax id otherwise, and issues tokens on a matching password.
//
// An unknown identifier and a wrong password produce the same failure.
// When no account matches, the password is still verified against a
// throwaway digest so both paths spend a bcrypt comparison.
func (s *AuthService) Authenticate(ctx context.Context, in ports.LoginInput) domain.Result[domain.AuthResult] {
	account, err := s.lookupByIdentifier(ctx, in.Identifier)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return internalFailure[domain.AuthResult](s.log, "find account by identifier", err)
		}
		if digest := s.throwawayDigest(); digest != "" {
			_ = s.hasher.Verify(digest, in.Password)
		}
		return domain.Fail[domain.AuthResult](domain.KindUnauthorized, domain.MsgInvalidCredentials)
	}

	if !s.hasher.Verify(account.PasswordHash, in.Password) {
		return domain.Fail[domain.AuthResult](domain.KindUnauthorized, domain.MsgInvalidCredentials)
	}

	access, err := s.tokens.IssueAccessToken(account, account.Roles)
	if err != nil {
		return internalFailure[domain.AuthResult](s.log, "issue access token", err)
	}
	refresh, err := s.tokens.IssueRefreshToken()
	if err != nil {
		return internalFailure[domain.AuthResult](s.log, "issue refresh token", err)
	}

	s.log.Debug().Str("account_id", account.ID).Msg("account authenticated")

	return domain.Success(domain.AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Account:      account.View(),
	})
}

// GetProfile returns the public projection of the account with the given id.
func (s *AuthService) GetProfile(ctx context.Context, accountID string) domain.Result[domain.AccountView] {
	account, err := s.store.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.Fail[domain.AccountView](domain.KindNotFound, domain.MsgAccountNotFound)
		}
		return internalFailure[domain.AccountView](s.log, "find account by id", err)
	}
	return domain.Success(account.View())
}

func (s *AuthService) lookupByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	if strings.Contains(identifier, "@") {
		return s.store.FindAccountByEmail(ctx, identifier)
	}
	return s.store.FindAccountByTaxID(ctx, identifier)
}

// throwawayDigest hashes a random secret once per service. An empty string
// means hashing failed and the equalizing verify is skipped.
func (s *AuthService) throwawayDigest() string {
	s.dummyOnce.Do(func() {
		b := make([]byte, 16)
		if _, err := rand.Read(b); err != nil {
			s.log.Warn().Err(err).Msg("generate throwaway secret")
			return
		}
		digest, err := s.hasher.Hash(hex.EncodeToString(b))
		if err != nil {
			s.log.Warn().Err(err).Msg("hash throwaway secret")
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

func internalFailure[T any](log zerolog.Logger, op string, err error) domain.Result[T] {
	log.Error().Err(err).Str("op", op).Msg("credential workflow failed")
	return domain.Internal[T](fmt.Errorf("%s: %w", op, err))
}
