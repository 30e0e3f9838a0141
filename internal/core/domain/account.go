package domain

import (
	"errors"
	"time"
)

// Role names seeded at bootstrap. RoleClient is attached when a registration
// does not ask for a role.
const (
	RoleAdmin    = "Admin"
	RoleManager  = "Manager"
	RoleEmployee = "Employee"
	RoleClient   = "Client"

	DefaultRole = RoleClient
)

// BootstrapRoles is the role vocabulary created by the seed step.
var BootstrapRoles = []string{RoleAdmin, RoleManager, RoleEmployee, RoleClient}

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrRoleNotFound    = errors.New("role not found")
	ErrEmailTaken      = errors.New("email already in use")
	ErrTaxIDTaken      = errors.New("tax id already in use")
	ErrPasswordTooLong = errors.New("password too long")
)

// Account models a registered identity. Roles is the flattened list of role
// names the account holds; stores fill it on every lookup.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	TaxID        string    `json:"tax_id,omitempty"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	Roles        []string  `json:"roles"`
}

// Role is a named authorization tag.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AccountRole links an account to a role it holds.
type AccountRole struct {
	AccountID string
	RoleID    string
}

// AccountView is the public projection of an account.
type AccountView struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	TaxID string   `json:"tax_id,omitempty"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// View projects the account onto its public shape. Roles is never nil.
func (a *Account) View() AccountView {
	roles := make([]string, len(a.Roles))
	copy(roles, a.Roles)
	return AccountView{
		ID:    a.ID,
		Email: a.Email,
		TaxID: a.TaxID,
		Name:  a.Name,
		Roles: roles,
	}
}

// AuthResult is returned by a successful authentication.
type AuthResult struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	Account      AccountView `json:"account"`
}
