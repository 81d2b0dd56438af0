package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ctkuo2438/NUboard/internal/database"
	"github.com/ctkuo2438/NUboard/internal/model"
)

// AssignmentRepository handles user_roles data access.
type AssignmentRepository struct {
	db database.Querier
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(db database.Querier) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Exists reports whether the user holds the role.
func (r *AssignmentRepository) Exists(ctx context.Context, key model.AssignmentKey) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role_id = $2)",
		key.UserID, key.RoleID,
	).Scan(&exists)
	return exists, err
}

// Insert creates an assignment. Returns ErrDuplicate if the pair already exists.
func (r *AssignmentRepository) Insert(ctx context.Context, a model.UserAssignment) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO user_roles (user_id, role_id, assigned_at, assigned_by) VALUES ($1, $2, $3, $4)",
		a.UserID, a.RoleID, a.AssignedAt, a.AssignedBy,
	)
	return mapError(err)
}

// Delete removes an assignment and reports whether a row was removed.
func (r *AssignmentRepository) Delete(ctx context.Context, key model.AssignmentKey) (bool, error) {
	tag, err := r.db.Exec(ctx,
		"DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2",
		key.UserID, key.RoleID,
	)
	if err != nil {
		return false, fmt.Errorf("delete assignment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountByRole counts the holders of a role.
func (r *AssignmentRepository) CountByRole(ctx context.Context, roleID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM user_roles WHERE role_id = $1", roleID).Scan(&n)
	return n, err
}

// CountEnabledHolders counts enabled holders of a role other than excludeUserID.
func (r *AssignmentRepository) CountEnabledHolders(ctx context.Context, roleID, excludeUserID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM user_roles ur
		 JOIN users u ON u.id = ur.user_id
		 WHERE ur.role_id = $1 AND u.enabled AND u.id <> $2`,
		roleID, excludeUserID,
	).Scan(&n)
	return n, err
}

// RoleNamesOfUser returns the names of the roles a user holds, ordered by name.
func (r *AssignmentRepository) RoleNamesOfUser(ctx context.Context, userID int64) ([]string, error) {
	return r.queryNames(ctx,
		`SELECT ro.name
		 FROM roles ro
		 JOIN user_roles ur ON ur.role_id = ro.id
		 WHERE ur.user_id = $1
		 ORDER BY ro.name`, userID,
	)
}

// PermissionNamesOfUser returns the deduplicated union of permissions over the
// roles a user holds, ordered by name.
func (r *AssignmentRepository) PermissionNamesOfUser(ctx context.Context, userID int64) ([]string, error) {
	return r.queryNames(ctx,
		`SELECT DISTINCT p.name
		 FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 JOIN user_roles ur ON ur.role_id = rp.role_id
		 WHERE ur.user_id = $1
		 ORDER BY p.name`, userID,
	)
}

// RoleNamesByUser maps each user ID holding a role to its role names.
func (r *AssignmentRepository) RoleNamesByUser(ctx context.Context) (map[int64][]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ur.user_id, ro.name
		 FROM user_roles ur
		 JOIN roles ro ON ro.id = ur.role_id
		 ORDER BY ur.user_id, ro.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("roles by user: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]string)
	for rows.Next() {
		var userID int64
		var role string
		if err := rows.Scan(&userID, &role); err != nil {
			return nil, err
		}
		out[userID] = append(out[userID], role)
	}
	return out, rows.Err()
}

// Recent returns assignments made after since, newest first, at most limit rows.
func (r *AssignmentRepository) Recent(ctx context.Context, since time.Time, limit int) ([]model.RoleActivity, error) {
	rows, err := r.db.Query(ctx,
		`SELECT u.id, u.username, u.email, ro.name, ur.assigned_at, ur.assigned_by
		 FROM user_roles ur
		 JOIN users u ON u.id = ur.user_id
		 JOIN roles ro ON ro.id = ur.role_id
		 WHERE ur.assigned_at > $1
		 ORDER BY ur.assigned_at DESC
		 LIMIT $2`, since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent assignments: %w", err)
	}
	defer rows.Close()

	var activity []model.RoleActivity
	for rows.Next() {
		var a model.RoleActivity
		if err := rows.Scan(&a.UserID, &a.Username, &a.Email, &a.RoleName, &a.AssignedAt, &a.AssignedBy); err != nil {
			return nil, err
		}
		activity = append(activity, a)
	}
	return activity, rows.Err()
}

func (r *AssignmentRepository) queryNames(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query names: %w", err)
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
