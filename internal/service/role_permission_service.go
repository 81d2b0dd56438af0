package service

import (
	"context"
	"errors"
	"time"

	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/ctkuo2438/NUboard/internal/repository"
	"github.com/rs/zerolog"
)

// RolePermissionService manages the permissions granted to roles.
type RolePermissionService struct {
	uow    UnitOfWork
	access AccessInvalidator
	events Publisher
	log    zerolog.Logger
	now    func() time.Time
}

// NewRolePermissionService creates a new RolePermissionService.
func NewRolePermissionService(uow UnitOfWork, access AccessInvalidator, events Publisher, log zerolog.Logger) *RolePermissionService {
	return &RolePermissionService{
		uow:    uow,
		access: access,
		events: events,
		log:    log.With().Str("component", "role_permission_service").Logger(),
		now:    time.Now,
	}
}

// Grant attaches a permission to a role. A pair that already exists fails with
// KindAlreadyGranted.
func (s *RolePermissionService) Grant(ctx context.Context, roleName, permissionName, grantedBy string) (model.RoleView, error) {
	roleName, permissionName, grantedBy, err := grantArgs(roleName, permissionName, grantedBy)
	if err != nil {
		return model.RoleView{}, err
	}

	var view model.RoleView
	err = s.uow.WithinTx(ctx, func(st Stores) error {
		role, perm, err := resolvePair(ctx, st, roleName, permissionName)
		if err != nil {
			return err
		}

		key := model.GrantKey{RoleID: role.ID, PermissionID: perm.ID}
		exists, err := st.Grants.Exists(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			return newError(KindAlreadyGranted, "role %s already has permission %s", role.Name, perm.Name)
		}
		err = st.Grants.Insert(ctx, key)
		if errors.Is(err, repository.ErrDuplicate) {
			return newError(KindAlreadyGranted, "role %s already has permission %s", role.Name, perm.Name)
		}
		if err != nil {
			return err
		}

		view, err = roleView(ctx, st, role)
		return err
	})
	if err != nil {
		return model.RoleView{}, s.fail(err, "grant", roleName, permissionName)
	}

	s.committed(ctx, model.ActivityPermissionGranted, grantedBy, roleName, permissionName)
	return view, nil
}

// Revoke detaches a permission from a role. Revoking a pair that does not exist
// changes nothing and returns the current role view.
func (s *RolePermissionService) Revoke(ctx context.Context, roleName, permissionName, revokedBy string) (model.RoleView, error) {
	roleName, permissionName, revokedBy, err := grantArgs(roleName, permissionName, revokedBy)
	if err != nil {
		return model.RoleView{}, err
	}

	var (
		view    model.RoleView
		removed bool
	)
	err = s.uow.WithinTx(ctx, func(st Stores) error {
		role, perm, err := resolvePair(ctx, st, roleName, permissionName)
		if err != nil {
			return err
		}
		if removed, err = st.Grants.Delete(ctx, model.GrantKey{RoleID: role.ID, PermissionID: perm.ID}); err != nil {
			return err
		}
		view, err = roleView(ctx, st, role)
		return err
	})
	if err != nil {
		return model.RoleView{}, s.fail(err, "revoke", roleName, permissionName)
	}

	if removed {
		s.committed(ctx, model.ActivityPermissionRevoked, revokedBy, roleName, permissionName)
	}
	return view, nil
}

// DeletePermission removes a permission from the catalog together with every
// grant of it.
func (s *RolePermissionService) DeletePermission(ctx context.Context, permissionName, deletedBy string) error {
	permissionName, err := requireText(permissionName, "permission name")
	if err != nil {
		return err
	}
	deletedBy, err = requireText(deletedBy, "deleted by")
	if err != nil {
		return err
	}

	var severed int64
	err = s.uow.WithinTx(ctx, func(st Stores) error {
		perm, err := findPermission(ctx, st, permissionName)
		if err != nil {
			return err
		}
		if severed, err = st.Grants.DeleteByPermission(ctx, perm.ID); err != nil {
			return err
		}
		err = st.Permissions.Delete(ctx, perm.ID)
		if errors.Is(err, repository.ErrNotFound) {
			return newError(KindPermissionNotFound, "permission %s not found", permissionName)
		}
		return err
	})
	if err != nil {
		return s.fail(err, "delete_permission", "", permissionName)
	}

	s.log.Info().Str("permission", permissionName).Int64("grants_removed", severed).Msg("Permission deleted")
	s.committed(ctx, model.ActivityPermissionDeleted, deletedBy, "", permissionName)
	return nil
}

// PermissionsOf returns the permissions granted to a role, ordered by name.
func (s *RolePermissionService) PermissionsOf(ctx context.Context, roleName string) ([]model.Permission, error) {
	roleName, err := requireText(roleName, "role name")
	if err != nil {
		return nil, err
	}
	st := s.uow.Stores()
	role, err := findRole(ctx, st, roleName)
	if err != nil {
		return nil, s.fail(err, "permissions_of", roleName, "")
	}
	perms, err := st.Grants.PermissionsOfRole(ctx, role.ID)
	if err != nil {
		return nil, s.fail(err, "permissions_of", roleName, "")
	}
	if perms == nil {
		perms = []model.Permission{}
	}
	return perms, nil
}

// RolesOf returns the names of roles granting a permission, ordered by name.
func (s *RolePermissionService) RolesOf(ctx context.Context, permissionName string) ([]string, error) {
	permissionName, err := requireText(permissionName, "permission name")
	if err != nil {
		return nil, err
	}
	st := s.uow.Stores()
	perm, err := findPermission(ctx, st, permissionName)
	if err != nil {
		return nil, s.fail(err, "roles_of", "", permissionName)
	}
	names, err := st.Grants.RoleNamesOfPermission(ctx, perm.ID)
	if err != nil {
		return nil, s.fail(err, "roles_of", "", permissionName)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// HasPermission reports whether a role is granted a permission.
func (s *RolePermissionService) HasPermission(ctx context.Context, roleName, permissionName string) (bool, error) {
	roleName, err := requireText(roleName, "role name")
	if err != nil {
		return false, err
	}
	permissionName, err = requireText(permissionName, "permission name")
	if err != nil {
		return false, err
	}
	st := s.uow.Stores()
	role, perm, err := resolvePair(ctx, st, roleName, permissionName)
	if err != nil {
		return false, s.fail(err, "has_permission", roleName, permissionName)
	}
	ok, err := st.Grants.Exists(ctx, model.GrantKey{RoleID: role.ID, PermissionID: perm.ID})
	if err != nil {
		return false, s.fail(err, "has_permission", roleName, permissionName)
	}
	return ok, nil
}

func (s *RolePermissionService) committed(ctx context.Context, t model.ActivityType, actor, roleName, permissionName string) {
	s.access.InvalidateAll(ctx)
	s.events.Publish(ctx, model.ActivityEvent{
		Type:       t,
		Actor:      actor,
		Role:       roleName,
		Permission: permissionName,
		At:         s.now().UTC(),
	})
	s.log.Info().
		Str("type", string(t)).
		Str("role", roleName).
		Str("permission", permissionName).
		Str("by", actor).
		Msg("Role permissions changed")
}

func (s *RolePermissionService) fail(err error, op, roleName, permissionName string) error {
	out := asServiceError(err)
	if KindOf(out) == KindDatabase {
		s.log.Error().Err(err).Str("op", op).Str("role", roleName).Str("permission", permissionName).Msg("Role permission operation failed")
	}
	return out
}

func grantArgs(roleName, permissionName, actor string) (string, string, string, error) {
	roleName, err := requireText(roleName, "role name")
	if err != nil {
		return "", "", "", err
	}
	permissionName, err = requireText(permissionName, "permission name")
	if err != nil {
		return "", "", "", err
	}
	actor, err = requireText(actor, "acting username")
	if err != nil {
		return "", "", "", err
	}
	return roleName, permissionName, actor, nil
}

func resolvePair(ctx context.Context, st Stores, roleName, permissionName string) (*model.Role, *model.Permission, error) {
	role, err := findRole(ctx, st, roleName)
	if err != nil {
		return nil, nil, err
	}
	perm, err := findPermission(ctx, st, permissionName)
	if err != nil {
		return nil, nil, err
	}
	return role, perm, nil
}
