package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

const uniqueViolation = "23505"

type txKey struct{}

// CredentialStore implements ports.CredentialStore on PostgreSQL.
type CredentialStore struct {
	db *gorm.DB
}

var (
	_ ports.CredentialStore = (*CredentialStore)(nil)
	_ ports.StoreHealth     = (*CredentialStore)(nil)
)

func NewCredentialStore(db *gorm.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// conn returns the transaction bound to ctx, or the pool.
func (r *CredentialStore) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *CredentialStore) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findAccount(ctx, "email = ?", email)
}

func (r *CredentialStore) FindAccountByTaxID(ctx context.Context, taxID string) (*domain.Account, error) {
	if taxID == "" {
		return nil, domain.ErrAccountNotFound
	}
	return r.findAccount(ctx, "tax_id = ?", taxID)
}

func (r *CredentialStore) FindAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findAccount(ctx, "id = ?", id)
}

func (r *CredentialStore) findAccount(ctx context.Context, query string, arg any) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m AccountModel
	if err := r.conn(ctx).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	var roles []string
	err := r.conn(ctx).
		Model(&RoleModel{}).
		Joins("JOIN account_roles ON account_roles.role_id = roles.id").
		Where("account_roles.account_id = ?", m.ID).
		Order("roles.name").
		Pluck("roles.name", &roles).Error
	if err != nil {
		return nil, fmt.Errorf("find account roles: %w", err)
	}
	return toAccountDomain(&m, roles), nil
}

func (r *CredentialStore) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m RoleModel
	if err := r.conn(ctx).Where("name = ?", name).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &domain.Role{ID: m.ID, Name: m.Name}, nil
}

func (r *CredentialStore) InsertAccount(ctx context.Context, account *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := r.conn(ctx).Create(fromAccountDomain(account)).Error; err != nil {
		if dup := uniqueViolationError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *CredentialStore) InsertAccountRole(ctx context.Context, link domain.AccountRole) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	m := &AccountRoleModel{AccountID: link.AccountID, RoleID: link.RoleID}
	if err := r.conn(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		return fmt.Errorf("insert account role: %w", err)
	}
	return nil
}

// WithinTransaction runs fn in one database transaction. Store calls made
// with the ctx passed to fn join it; fn returning an error rolls back.
func (r *CredentialStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// uniqueViolationError maps a unique constraint violation to its domain
// error. It returns nil for anything else.
func uniqueViolationError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case emailConstraint:
		return domain.ErrEmailTaken
	case taxIDConstraint:
		return domain.ErrTaxIDTaken
	}
	return nil
}

// Migrate creates or updates the tables and their indexes.
func (r *CredentialStore) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&AccountModel{}, &RoleModel{}, &AccountRoleModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// SeedRoles makes sure every named role exists. Existing roles keep their ids.
func (r *CredentialStore) SeedRoles(ctx context.Context, names []string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	for _, name := range names {
		m := &RoleModel{ID: uuid.NewString(), Name: name}
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
			Create(m).Error
		if err != nil {
			return fmt.Errorf("seed role %q: %w", name, err)
		}
	}
	return nil
}

func (r *CredentialStore) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *CredentialStore) CountRoles(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&RoleModel{}).Count(&n).Error
	return n, err
}
