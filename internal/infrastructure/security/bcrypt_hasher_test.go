package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/identity-service/internal/core/domain"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	for _, password := range []string{"secret1", "Admin@123", "ünïcødé-pässwörd", strings.Repeat("x", 72)} {
		digest, err := hasher.Hash(password)
		require.NoError(t, err)
		assert.NotEqual(t, password, digest)

		assert.True(t, hasher.Verify(digest, password), "password %q must verify", password)
		assert.False(t, hasher.Verify(digest, password+"!"))
		assert.False(t, hasher.Verify(digest, ""))
	}
}

func TestBcryptHasher_SaltsEveryDigest(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	a, err := hasher.Hash("secret1")
	require.NoError(t, err)
	b, err := hasher.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestBcryptHasher_VerifyRejectsMalformedDigest(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	assert.False(t, hasher.Verify("not-a-bcrypt-digest", "secret1"))
}

func TestNewBcryptHasher_OutOfRangeCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}

func TestBcryptHasher_RejectsOver72Bytes(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	_, err := hasher.Hash(strings.Repeat("é", 40))
	assert.ErrorIs(t, err, domain.ErrPasswordTooLong)

	_, err = hasher.Hash(strings.Repeat("é", 36))
	assert.NoError(t, err)
}
