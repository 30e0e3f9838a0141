package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// DefaultAccessTTL is used when JWTConfig.AccessTTL is not positive.
const DefaultAccessTTL = 2 * time.Hour

const refreshTokenBytes = 16

// ErrSigningKeyMissing is returned when a token is requested without a
// configured signing key. No token is ever produced in that state.
var ErrSigningKeyMissing = errors.New("jwt signing key not configured")

// JWTConfig is supplied by the caller at construction time.
type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
}

// AccessClaims is the claim set carried by an access token. Roles is the
// comma-joined role list and is always present, possibly empty.
type AccessClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Roles string `json:"roles"`
	jwt.RegisteredClaims
}

// RoleList splits the roles claim. An empty claim yields no roles.
func (c *AccessClaims) RoleList() []string {
	if c.Roles == "" {
		return nil
	}
	return strings.Split(c.Roles, ",")
}

// JWTIssuer signs HS256 access tokens and mints opaque refresh tokens.
type JWTIssuer struct {
	cfg JWTConfig
	now func() time.Time
}

var _ ports.TokenIssuer = (*JWTIssuer)(nil)

func NewJWTIssuer(cfg JWTConfig) *JWTIssuer {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	return &JWTIssuer{cfg: cfg, now: time.Now}
}

// IssueAccessToken signs a token for account carrying the given role names.
func (i *JWTIssuer) IssueAccessToken(account *domain.Account, roles []string) (string, error) {
	if i.cfg.SigningKey == "" {
		return "", ErrSigningKeyMissing
	}

	now := i.now().UTC()
	claims := AccessClaims{
		Email: account.Email,
		Name:  account.Name,
		Roles: strings.Join(roles, ","),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			ID:        uuid.NewString(),
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.AccessTTL)),
		},
	}
	if i.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.cfg.Audience}
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(i.cfg.SigningKey))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken returns 128 random bits as lowercase hex. The value
// carries no claims and is not stored anywhere.
func (i *JWTIssuer) IssueRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ParseAccessToken verifies signature, algorithm, expiry and, when
// configured, issuer and audience.
func (i *JWTIssuer) ParseAccessToken(token string) (*AccessClaims, error) {
	if i.cfg.SigningKey == "" {
		return nil, ErrSigningKeyMissing
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.cfg.Issuer))
	}
	if i.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(i.cfg.Audience))
	}

	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(i.cfg.SigningKey), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return claims, nil
}
