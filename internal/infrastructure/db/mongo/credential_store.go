package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

const (
	accountsCollection     = "accounts"
	rolesCollection        = "roles"
	accountRolesCollection = "account_roles"

	emailIndex    = "email_unique"
	taxIDIndex    = "tax_id_unique"
	roleNameIndex = "role_name_unique"
)

// CredentialStore implements ports.CredentialStore on MongoDB. Accounts,
// roles and their links live in separate collections; registration writes
// both inside one multi-document transaction.
type CredentialStore struct {
	client       *mongo.Client
	accounts     *mongo.Collection
	roles        *mongo.Collection
	accountRoles *mongo.Collection
}

var (
	_ ports.CredentialStore = (*CredentialStore)(nil)
	_ ports.StoreHealth     = (*CredentialStore)(nil)
)

func NewCredentialStore(client *mongo.Client, db *mongo.Database) *CredentialStore {
	return &CredentialStore{
		client:       client,
		accounts:     db.Collection(accountsCollection),
		roles:        db.Collection(rolesCollection),
		accountRoles: db.Collection(accountRolesCollection),
	}
}

type accountDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	TaxID        string    `bson:"tax_id,omitempty"`
	PasswordHash string    `bson:"password_hash"`
	Name         string    `bson:"name"`
	CreatedAt    time.Time `bson:"created_at"`
}

type roleDoc struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
}

type accountRoleKey struct {
	AccountID string `bson:"account_id"`
	RoleID    string `bson:"role_id"`
}

type accountRoleDoc struct {
	ID accountRoleKey `bson:"_id"`
}

// accountWithRoles is the shape produced by accountPipeline.
type accountWithRoles struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	TaxID        string    `bson:"tax_id,omitempty"`
	PasswordHash string    `bson:"password_hash"`
	Name         string    `bson:"name"`
	CreatedAt    time.Time `bson:"created_at"`
	Roles        []roleDoc `bson:"roles"`
}

func (r *CredentialStore) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findAccount(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *CredentialStore) FindAccountByTaxID(ctx context.Context, taxID string) (*domain.Account, error) {
	if taxID == "" {
		return nil, domain.ErrAccountNotFound
	}
	return r.findAccount(ctx, bson.D{{Key: "tax_id", Value: taxID}})
}

func (r *CredentialStore) FindAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findAccount(ctx, bson.D{{Key: "_id", Value: id}})
}

// accountPipeline matches one account and joins its role names through the
// link collection.
func accountPipeline(filter bson.D) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$limit", Value: 1}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: accountRolesCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "_id.account_id"},
			{Key: "as", Value: "links"},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: rolesCollection},
			{Key: "localField", Value: "links._id.role_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "roles"},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "links", Value: 0}}}},
	}
}

func (r *CredentialStore) findAccount(ctx context.Context, filter bson.D) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.accounts.Aggregate(ctx, accountPipeline(filter))
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, fmt.Errorf("find account: %w", err)
		}
		return nil, domain.ErrAccountNotFound
	}

	var doc accountWithRoles
	if err := cur.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return toDomainAccount(doc), nil
}

func toDomainAccount(doc accountWithRoles) *domain.Account {
	roles := make([]string, 0, len(doc.Roles))
	for _, r := range doc.Roles {
		roles = append(roles, r.Name)
	}
	sort.Strings(roles)

	return &domain.Account{
		ID:           doc.ID,
		Email:        doc.Email,
		TaxID:        doc.TaxID,
		PasswordHash: doc.PasswordHash,
		Name:         doc.Name,
		CreatedAt:    doc.CreatedAt.UTC(),
		Roles:        roles,
	}
}

func (r *CredentialStore) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc roleDoc
	if err := r.roles.FindOne(ctx, bson.M{"name": name}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &domain.Role{ID: doc.ID, Name: doc.Name}, nil
}

func (r *CredentialStore) InsertAccount(ctx context.Context, account *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := accountDoc{
		ID:           account.ID,
		Email:        account.Email,
		TaxID:        account.TaxID,
		PasswordHash: account.PasswordHash,
		Name:         account.Name,
		CreatedAt:    account.CreatedAt.UTC(),
	}
	if _, err := r.accounts.InsertOne(ctx, doc); err != nil {
		if dup := duplicateKeyError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *CredentialStore) InsertAccountRole(ctx context.Context, link domain.AccountRole) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := accountRoleDoc{ID: accountRoleKey{AccountID: link.AccountID, RoleID: link.RoleID}}
	if _, err := r.accountRoles.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert account role: %w", err)
	}
	return nil
}

// WithinTransaction runs fn in a session transaction. The driver retries fn
// on transient transaction errors, so fn must be safe to repeat.
func (r *CredentialStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// duplicateKeyError maps a unique index violation to its domain error.
// It returns nil for anything else.
func duplicateKeyError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, emailIndex):
		return domain.ErrEmailTaken
	case strings.Contains(msg, taxIDIndex):
		return domain.ErrTaxIDTaken
	}
	return nil
}

// EnsureIndexes creates the unique indexes the store relies on. tax_id is
// unique only among accounts that have one.
func (r *CredentialStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	accountIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(emailIndex).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "tax_id", Value: 1}},
			Options: options.Index().SetName(taxIDIndex).SetUnique(true).
				SetPartialFilterExpression(bson.M{"tax_id": bson.M{"$type": "string"}}),
		},
	}
	if _, err := r.accounts.Indexes().CreateMany(ctx, accountIndexes); err != nil {
		return fmt.Errorf("create account indexes: %w", err)
	}

	roleIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetName(roleNameIndex).SetUnique(true),
	}
	if _, err := r.roles.Indexes().CreateOne(ctx, roleIndex); err != nil {
		return fmt.Errorf("create role index: %w", err)
	}

	linkIndex := mongo.IndexModel{Keys: bson.D{{Key: "_id.role_id", Value: 1}}}
	if _, err := r.accountRoles.Indexes().CreateOne(ctx, linkIndex); err != nil {
		return fmt.Errorf("create account role index: %w", err)
	}
	return nil
}

// SeedRoles makes sure every named role exists. Existing roles keep their ids.
func (r *CredentialStore) SeedRoles(ctx context.Context, names []string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	for _, name := range names {
		_, err := r.roles.UpdateOne(ctx,
			bson.M{"name": name},
			bson.M{"$setOnInsert": bson.M{"_id": uuid.NewString(), "name": name}},
			options.Update().SetUpsert(true),
		)
		if err != nil && !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("seed role %q: %w", name, err)
		}
	}
	return nil
}

func (r *CredentialStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

func (r *CredentialStore) CountRoles(ctx context.Context) (int64, error) {
	return r.roles.CountDocuments(ctx, bson.M{})
}
