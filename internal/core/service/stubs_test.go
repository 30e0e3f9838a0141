package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory credential store
// ---------------------------------------------------------------------------

type txKey struct{}

type stubStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account // by id
	roles    map[string]*domain.Role    // by name
	links    []domain.AccountRole

	// skipEmailLookup makes FindAccountByEmail miss, simulating a concurrent
	// registration that committed after the pre-check.
	skipEmailLookup bool
	findErr         error
	insertLinkErr   error

	emailLookups []string
	taxIDLookups []string
	roleLookups  []string
}

func newStubStore() *stubStore {
	s := &stubStore{
		accounts: make(map[string]*domain.Account),
		roles:    make(map[string]*domain.Role),
	}
	for i, name := range domain.BootstrapRoles {
		s.roles[name] = &domain.Role{ID: "role-" + string(rune('a'+i)), Name: name}
	}
	return s
}

func (s *stubStore) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	c.Roles = append([]string(nil), a.Roles...)
	return &c
}

// withRoles fills Roles from the link table, mirroring the real stores.
func (s *stubStore) withRoles(a *domain.Account) *domain.Account {
	c := cloneAccount(a)
	c.Roles = nil
	for _, l := range s.links {
		if l.AccountID != a.ID {
			continue
		}
		for _, r := range s.roles {
			if r.ID == l.RoleID {
				c.Roles = append(c.Roles, r.Name)
			}
		}
	}
	return c
}

func (s *stubStore) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	defer s.lock(ctx)()
	s.emailLookups = append(s.emailLookups, email)
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.skipEmailLookup {
		return nil, domain.ErrAccountNotFound
	}
	for _, a := range s.accounts {
		if a.Email == email {
			return s.withRoles(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *stubStore) FindAccountByTaxID(ctx context.Context, taxID string) (*domain.Account, error) {
	defer s.lock(ctx)()
	s.taxIDLookups = append(s.taxIDLookups, taxID)
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, a := range s.accounts {
		if a.TaxID != "" && a.TaxID == taxID {
			return s.withRoles(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *stubStore) FindAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	defer s.lock(ctx)()
	if s.findErr != nil {
		return nil, s.findErr
	}
	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return s.withRoles(a), nil
}

func (s *stubStore) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	defer s.lock(ctx)()
	s.roleLookups = append(s.roleLookups, name)
	r, ok := s.roles[name]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	c := *r
	return &c, nil
}

func (s *stubStore) InsertAccount(ctx context.Context, account *domain.Account) error {
	defer s.lock(ctx)()
	for _, a := range s.accounts {
		if a.Email == account.Email {
			return domain.ErrEmailTaken
		}
		if account.TaxID != "" && a.TaxID == account.TaxID {
			return domain.ErrTaxIDTaken
		}
	}
	c := cloneAccount(account)
	c.Roles = nil
	s.accounts[account.ID] = c
	return nil
}

func (s *stubStore) InsertAccountRole(ctx context.Context, link domain.AccountRole) error {
	defer s.lock(ctx)()
	if s.insertLinkErr != nil {
		return s.insertLinkErr
	}
	if _, ok := s.accounts[link.AccountID]; !ok {
		return errors.New("link references unknown account")
	}
	s.links = append(s.links, link)
	return nil
}

// WithinTransaction holds the store lock for the whole callback and restores
// the previous state when it fails.
func (s *stubStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make(map[string]*domain.Account, len(s.accounts))
	for k, v := range s.accounts {
		accounts[k] = v
	}
	links := append([]domain.AccountRole(nil), s.links...)

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.accounts = accounts
		s.links = links
		return err
	}
	return nil
}

func (s *stubStore) accountCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// ---------------------------------------------------------------------------
// Hasher and token issuer stubs
// ---------------------------------------------------------------------------

type stubHasher struct {
	hashErr     error
	verifyCalls atomic.Int32
}

func (h *stubHasher) Hash(plain string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + plain, nil
}

func (h *stubHasher) Verify(digest, plain string) bool {
	h.verifyCalls.Add(1)
	return strings.TrimPrefix(digest, "hashed:") == plain && strings.HasPrefix(digest, "hashed:")
}

type stubTokens struct {
	accessErr  error
	refreshErr error
	issuedFor  []string
	rolesSeen  [][]string
}

func (t *stubTokens) IssueAccessToken(account *domain.Account, roles []string) (string, error) {
	if t.accessErr != nil {
		return "", t.accessErr
	}
	t.issuedFor = append(t.issuedFor, account.ID)
	t.rolesSeen = append(t.rolesSeen, roles)
	return "access-" + account.ID, nil
}

func (t *stubTokens) IssueRefreshToken() (string, error) {
	if t.refreshErr != nil {
		return "", t.refreshErr
	}
	return "refresh-token", nil
}
