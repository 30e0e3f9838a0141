package postgres

import (
	"time"

	"github.com/99minutos/identity-service/internal/core/domain"
)

const (
	emailConstraint    = "accounts_email_key"
	taxIDConstraint    = "accounts_tax_id_key"
	roleNameConstraint = "roles_name_key"
)

// AccountModel mirrors the 'accounts' table. TaxID is NULL when absent so
// the unique index only covers accounts that have one.
type AccountModel struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	Email        string    `gorm:"type:varchar(150);not null;uniqueIndex:accounts_email_key"`
	TaxID        *string   `gorm:"type:varchar(11);uniqueIndex:accounts_tax_id_key"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	Name         string    `gorm:"type:varchar(100);not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

// RoleModel mirrors the 'roles' table.
type RoleModel struct {
	ID   string `gorm:"type:varchar(36);primaryKey"`
	Name string `gorm:"type:varchar(50);not null;uniqueIndex:roles_name_key"`
}

func (RoleModel) TableName() string {
	return "roles"
}

// AccountRoleModel mirrors the 'account_roles' link table.
type AccountRoleModel struct {
	AccountID string       `gorm:"type:varchar(36);primaryKey"`
	RoleID    string       `gorm:"type:varchar(36);primaryKey;index"`
	Account   AccountModel `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	Role      RoleModel    `gorm:"foreignKey:RoleID;constraint:OnDelete:RESTRICT"`
}

func (AccountRoleModel) TableName() string {
	return "account_roles"
}

func fromAccountDomain(a *domain.Account) *AccountModel {
	m := &AccountModel{
		ID:           a.ID,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Name:         a.Name,
		CreatedAt:    a.CreatedAt.UTC(),
	}
	if a.TaxID != "" {
		taxID := a.TaxID
		m.TaxID = &taxID
	}
	return m
}

func toAccountDomain(m *AccountModel, roles []string) *domain.Account {
	a := &domain.Account{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Name:         m.Name,
		CreatedAt:    m.CreatedAt.UTC(),
		Roles:        roles,
	}
	if m.TaxID != nil {
		a.TaxID = *m.TaxID
	}
	if a.Roles == nil {
		a.Roles = []string{}
	}
	return a
}
