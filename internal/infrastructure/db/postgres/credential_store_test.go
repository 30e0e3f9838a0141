package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/identity-service/internal/core/domain"
)

func TestUniqueViolationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"email", &pgconn.PgError{Code: "23505", ConstraintName: emailConstraint}, domain.ErrEmailTaken},
		{"tax id", &pgconn.PgError{Code: "23505", ConstraintName: taxIDConstraint}, domain.ErrTaxIDTaken},
		{"wrapped", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: emailConstraint}), domain.ErrEmailTaken},
		{"primary key", &pgconn.PgError{Code: "23505", ConstraintName: "accounts_pkey"}, nil},
		{"not null", &pgconn.PgError{Code: "23502", ConstraintName: emailConstraint}, nil},
		{"plain error", errors.New("connection reset"), nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := uniqueViolationError(tc.err)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.ErrorIs(t, got, tc.want)
		})
	}
}

func TestAccountModelMapping(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	account := &domain.Account{
		ID:           "acc-1",
		Email:        "a@x.com",
		TaxID:        "12345678901",
		PasswordHash: "digest",
		Name:         "A",
		CreatedAt:    created,
	}

	m := fromAccountDomain(account)
	require.NotNil(t, m.TaxID)
	assert.Equal(t, "12345678901", *m.TaxID)

	back := toAccountDomain(m, []string{"Client"})
	assert.Equal(t, account.ID, back.ID)
	assert.Equal(t, account.TaxID, back.TaxID)
	assert.Equal(t, []string{"Client"}, back.Roles)
	assert.True(t, back.CreatedAt.Equal(created))
}

func TestAccountModelMapping_NoTaxID(t *testing.T) {
	m := fromAccountDomain(&domain.Account{ID: "acc-2", Email: "b@x.com"})
	assert.Nil(t, m.TaxID)

	back := toAccountDomain(m, nil)
	assert.Empty(t, back.TaxID)
	require.NotNil(t, back.Roles)
	assert.Empty(t, back.Roles)
}
