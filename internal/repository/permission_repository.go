package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ctkuo2438/NUboard/internal/database"
	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/jackc/pgx/v5"
)

// PermissionRepository handles permission data access.
type PermissionRepository struct {
	db database.Querier
}

// NewPermissionRepository creates a new PermissionRepository.
func NewPermissionRepository(db database.Querier) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// FindByName retrieves a permission by its unique name.
func (r *PermissionRepository) FindByName(ctx context.Context, name string) (*model.Permission, error) {
	p := &model.Permission{}
	err := r.db.QueryRow(ctx,
		"SELECT id, name, description FROM permissions WHERE name = $1", name,
	).Scan(&p.ID, &p.Name, &p.Description)
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

// FindOrCreate returns the permission named name, inserting it when absent.
// A concurrent insert of the same name resolves to the winner's row.
func (r *PermissionRepository) FindOrCreate(ctx context.Context, name, description string) (*model.Permission, bool, error) {
	p := &model.Permission{Name: name, Description: description}
	err := r.db.QueryRow(ctx,
		`INSERT INTO permissions (name, description) VALUES ($1, $2)
		 ON CONFLICT (name) DO NOTHING
		 RETURNING id`,
		name, description,
	).Scan(&p.ID)
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("insert permission: %w", err)
	}
	existing, err := r.FindByName(ctx, name)
	return existing, false, err
}

// List returns every permission ordered by name.
func (r *PermissionRepository) List(ctx context.Context) ([]model.Permission, error) {
	rows, err := r.db.Query(ctx, "SELECT id, name, description FROM permissions ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	var permissions []model.Permission
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		permissions = append(permissions, p)
	}
	return permissions, rows.Err()
}

// Count returns the number of permissions.
func (r *PermissionRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM permissions").Scan(&n)
	return n, err
}

// Delete removes a permission by ID. Returns ErrNotFound if no row matched.
func (r *PermissionRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM permissions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
