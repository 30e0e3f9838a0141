package ports

import "github.com/99minutos/identity-service/internal/core/domain"

// PasswordHasher hashes and verifies plaintext secrets.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Verify reports whether plain matches digest. It must not leak timing
	// information about the digest.
	Verify(digest, plain string) bool
}

// TokenIssuer mints access and refresh tokens for an account.
type TokenIssuer interface {
	IssueAccessToken(account *domain.Account, roles []string) (string, error)
	IssueRefreshToken() (string, error)
}
