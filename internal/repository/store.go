package repository

import (
	"context"

	"github.com/ctkuo2438/NUboard/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries groups the repositories bound to one Querier (pool or transaction).
type Queries struct {
	Permissions   *PermissionRepository
	Roles         *RoleRepository
	Grants        *GrantRepository
	Users         *UserRepository
	Assignments   *AssignmentRepository
	Registrations *RegistrationRepository
}

// NewQueries binds every repository to db.
func NewQueries(db database.Querier) Queries {
	return Queries{
		Permissions:   NewPermissionRepository(db),
		Roles:         NewRoleRepository(db),
		Grants:        NewGrantRepository(db),
		Users:         NewUserRepository(db),
		Assignments:   NewAssignmentRepository(db),
		Registrations: NewRegistrationRepository(db),
	}
}

// Store exposes pool-bound repositories and transactional units of work.
type Store struct {
	Queries
	pool *pgxpool.Pool
}

// NewStore creates a Store over pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Queries: NewQueries(pool), pool: pool}
}

// WithTx runs fn with repositories bound to a single transaction.
func (s *Store) WithTx(ctx context.Context, fn func(Queries) error) error {
	return database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(NewQueries(tx))
	})
}
