package repository

import (
	"context"
	"fmt"

	"github.com/ctkuo2438/NUboard/internal/database"
	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/jackc/pgx/v5"
)

const userColumns = "u.id, u.username, u.email, u.enabled, u.auth_provider, u.created_at"

// UserRepository handles user data access.
type UserRepository struct {
	db database.Querier
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db database.Querier) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID retrieves a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.findOne(ctx, "SELECT "+userColumns+" FROM users u WHERE u.id = $1", id)
}

// LockByID retrieves a user and holds a row lock on it until the surrounding
// transaction ends.
func (r *UserRepository) LockByID(ctx context.Context, id int64) (*model.User, error) {
	return r.findOne(ctx, "SELECT "+userColumns+" FROM users u WHERE u.id = $1 FOR UPDATE", id)
}

// FindByEmail retrieves a user by their unique email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "SELECT "+userColumns+" FROM users u WHERE u.email = $1", email)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// Create inserts a new user. Returns ErrDuplicate when the email is taken.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (username, email, enabled, auth_provider)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		u.Username, u.Email, u.Enabled, u.AuthProvider,
	).Scan(&u.ID, &u.CreatedAt)
	return mapError(err)
}

// SetEnabled updates the enabled flag of a user.
func (r *UserRepository) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE users SET enabled = $1, updated_at = NOW() WHERE id = $2", enabled, id,
	)
	if err != nil {
		return fmt.Errorf("set user enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns every user ordered by ID.
func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	return r.queryUsers(ctx, "SELECT "+userColumns+" FROM users u ORDER BY u.id")
}

// ListByRole returns the holders of a role ordered by ID.
func (r *UserRepository) ListByRole(ctx context.Context, roleID int64) ([]model.User, error) {
	return r.queryUsers(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 JOIN user_roles ur ON ur.user_id = u.id
		 WHERE ur.role_id = $1
		 ORDER BY u.id`, roleID,
	)
}

// Search returns users matching every non-empty predicate of f, ordered by ID.
// Keyword is compared against lower-cased username and email, so callers pass it
// already trimmed and lower-cased.
func (r *UserRepository) Search(ctx context.Context, f model.UserSearchFilter) ([]model.User, error) {
	return r.queryUsers(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 WHERE ($1 = '' OR STRPOS(LOWER(u.username), $1) > 0 OR STRPOS(LOWER(u.email), $1) > 0)
		   AND ($2 = '' OR EXISTS (
		         SELECT 1 FROM user_roles ur
		         JOIN roles ro ON ro.id = ur.role_id
		         WHERE ur.user_id = u.id AND ro.name = $2))
		   AND ($3::BOOLEAN IS NULL OR u.enabled = $3)
		 ORDER BY u.id`,
		f.Keyword, f.Role, f.Enabled,
	)
}

// CountByStatus returns the total and enabled user counts.
func (r *UserRepository) CountByStatus(ctx context.Context) (total, enabled int, err error) {
	err = r.db.QueryRow(ctx,
		"SELECT COUNT(*), COUNT(*) FILTER (WHERE enabled) FROM users",
	).Scan(&total, &enabled)
	return total, enabled, err
}

// CountWithoutRoles counts users holding no role at all.
func (r *UserRepository) CountWithoutRoles(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM users u WHERE NOT EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id = u.id)",
	).Scan(&n)
	return n, err
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]model.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Enabled, &u.AuthProvider, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}
