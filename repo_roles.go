package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Accounts is the marketplace account repository: the generic record
// operations plus the role storage contract the resolver consumes.
type Accounts interface {
	repository.Repository[*User]

	GetRole(ctx context.Context, userID string) (Role, error)
	GetRoleTx(ctx context.Context, tx bun.IDB, userID string) (Role, error)
	UpsertDefaultRole(ctx context.Context, userID, email string, role Role) error
	UpsertDefaultRoleTx(ctx context.Context, tx bun.IDB, userID, email string, role Role) error
}

var (
	_ Accounts  = (*accounts)(nil)
	_ RoleStore = (*accounts)(nil)
)

type accounts struct {
	repository.Repository[*User]
	db *bun.DB
}

// NewAccountsRepository returns the bun-backed account store.
func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) GetRole(ctx context.Context, userID string) (Role, error) {
	return a.GetRoleTx(ctx, a.db, userID)
}

func (a *accounts) GetRoleTx(ctx context.Context, tx bun.IDB, userID string) (Role, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryBadInput, "invalid user identifier").
			WithMetadata(map[string]any{"user_id": userID})
	}

	record := &User{}
	err = tx.NewSelect().
		Model(record).
		Column("user_role").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows || repository.IsRecordNotFound(err) {
			return "", ErrRoleNotFound.WithMetadata(map[string]any{
				"user_id": userID,
			})
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "role lookup query failed").
			WithMetadata(map[string]any{"user_id": userID})
	}

	record.EnsureRole()

	return record.Role, nil
}

func (a *accounts) UpsertDefaultRole(ctx context.Context, userID, email string, role Role) error {
	return a.UpsertDefaultRoleTx(ctx, a.db, userID, email, role)
}

// UpsertDefaultRoleTx inserts the account record with its default role,
// keyed by the provider's user id. A concurrent creator wins silently: the
// insert ignores conflicts so two racing resolutions never error.
func (a *accounts) UpsertDefaultRoleTx(ctx context.Context, tx bun.IDB, userID, email string, role Role) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid user identifier").
			WithMetadata(map[string]any{"user_id": userID})
	}

	if !IsValidRole(role) {
		role = RoleBuyer
	}

	now := time.Now()
	record := &User{
		ID:        id,
		Email:     email,
		Role:      role,
		UpdatedAt: &now,
	}

	_, err = tx.NewInsert().
		Model(record).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)

	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not create default role record").
			WithMetadata(map[string]any{"user_id": userID})
	}

	return nil
}

// RepositoryManager exposes the repositories plus transaction scope for
// command handlers.
type RepositoryManager interface {
	repository.TransactionManager
	Accounts() Accounts
}

type mngr struct {
	db       *bun.DB
	accounts Accounts
}

// NewRepositoryManager wires the account repository over db.
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:       db,
		accounts: NewAccountsRepository(db),
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}
