package repository

import (
	"context"
	"fmt"

	"github.com/ctkuo2438/NUboard/internal/database"
	"github.com/ctkuo2438/NUboard/internal/model"
)

// GrantRepository handles role_permissions data access.
type GrantRepository struct {
	db database.Querier
}

// NewGrantRepository creates a new GrantRepository.
func NewGrantRepository(db database.Querier) *GrantRepository {
	return &GrantRepository{db: db}
}

// Exists reports whether the pair is granted.
func (r *GrantRepository) Exists(ctx context.Context, key model.GrantKey) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM role_permissions WHERE role_id = $1 AND permission_id = $2)",
		key.RoleID, key.PermissionID,
	).Scan(&exists)
	return exists, err
}

// Insert creates a grant. Returns ErrDuplicate if the pair already exists.
func (r *GrantRepository) Insert(ctx context.Context, key model.GrantKey) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)",
		key.RoleID, key.PermissionID,
	)
	return mapError(err)
}

// InsertIfAbsent creates a grant unless the pair exists and reports whether a
// row was inserted.
func (r *GrantRepository) InsertIfAbsent(ctx context.Context, key model.GrantKey) (bool, error) {
	tag, err := r.db.Exec(ctx,
		"INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		key.RoleID, key.PermissionID,
	)
	if err != nil {
		return false, fmt.Errorf("insert grant: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes a grant and reports whether a row was removed.
func (r *GrantRepository) Delete(ctx context.Context, key model.GrantKey) (bool, error) {
	tag, err := r.db.Exec(ctx,
		"DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2",
		key.RoleID, key.PermissionID,
	)
	if err != nil {
		return false, fmt.Errorf("delete grant: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteByPermission removes every grant of a permission.
func (r *GrantRepository) DeleteByPermission(ctx context.Context, permissionID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM role_permissions WHERE permission_id = $1", permissionID)
	if err != nil {
		return 0, fmt.Errorf("delete grants by permission: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountByRole counts the grants of a role directly in the association table.
func (r *GrantRepository) CountByRole(ctx context.Context, roleID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM role_permissions WHERE role_id = $1", roleID).Scan(&n)
	return n, err
}

// PermissionsOfRole returns the permissions granted to a role, ordered by name.
func (r *GrantRepository) PermissionsOfRole(ctx context.Context, roleID int64) ([]model.Permission, error) {
	rows, err := r.db.Query(ctx,
		`SELECT p.id, p.name, p.description
		 FROM permissions p
		 JOIN role_permissions rp ON p.id = rp.permission_id
		 WHERE rp.role_id = $1
		 ORDER BY p.name`, roleID,
	)
	if err != nil {
		return nil, fmt.Errorf("permissions of role: %w", err)
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

// RoleNamesOfPermission returns the names of roles granting a permission, ordered by name.
func (r *GrantRepository) RoleNamesOfPermission(ctx context.Context, permissionID int64) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ro.name
		 FROM roles ro
		 JOIN role_permissions rp ON ro.id = rp.role_id
		 WHERE rp.permission_id = $1
		 ORDER BY ro.name`, permissionID,
	)
	if err != nil {
		return nil, fmt.Errorf("roles of permission: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// PermissionNamesByRole maps each role name to its granted permission names.
func (r *GrantRepository) PermissionNamesByRole(ctx context.Context) (map[string][]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ro.name, p.name
		 FROM role_permissions rp
		 JOIN roles ro ON ro.id = rp.role_id
		 JOIN permissions p ON p.id = rp.permission_id
		 ORDER BY ro.name, p.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("permissions by role: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var role, permission string
		if err := rows.Scan(&role, &permission); err != nil {
			return nil, err
		}
		out[role] = append(out[role], permission)
	}
	return out, rows.Err()
}
