package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ctkuo2438/NUboard/internal/database"
	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/jackc/pgx/v5"
)

// RoleRepository handles role data access.
type RoleRepository struct {
	db database.Querier
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(db database.Querier) *RoleRepository {
	return &RoleRepository{db: db}
}

// FindByName retrieves a role by its unique name.
func (r *RoleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	return r.findByName(ctx, "SELECT id, name, description FROM roles WHERE name = $1", name)
}

// LockByName retrieves a role and holds a row lock on it until the
// surrounding transaction ends.
func (r *RoleRepository) LockByName(ctx context.Context, name string) (*model.Role, error) {
	return r.findByName(ctx, "SELECT id, name, description FROM roles WHERE name = $1 FOR UPDATE", name)
}

func (r *RoleRepository) findByName(ctx context.Context, query, name string) (*model.Role, error) {
	role := &model.Role{}
	err := r.db.QueryRow(ctx, query, name).Scan(&role.ID, &role.Name, &role.Description)
	if err != nil {
		return nil, mapError(err)
	}
	return role, nil
}

// FindOrCreate returns the role named name, inserting it when absent.
// A concurrent insert of the same name resolves to the winner's row.
func (r *RoleRepository) FindOrCreate(ctx context.Context, name, description string) (*model.Role, bool, error) {
	role := &model.Role{Name: name, Description: description}
	err := r.db.QueryRow(ctx,
		`INSERT INTO roles (name, description) VALUES ($1, $2)
		 ON CONFLICT (name) DO NOTHING
		 RETURNING id`,
		name, description,
	).Scan(&role.ID)
	if err == nil {
		return role, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("insert role: %w", err)
	}
	existing, err := r.FindByName(ctx, name)
	return existing, false, err
}

// List returns every role ordered by name.
func (r *RoleRepository) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.db.Query(ctx, "SELECT id, name, description FROM roles ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
