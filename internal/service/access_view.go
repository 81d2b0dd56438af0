package service

import (
	"context"
	"errors"
	"sort"

	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/ctkuo2438/NUboard/internal/repository"
)

func findUser(ctx context.Context, st Stores, userID int64) (*model.User, error) {
	u, err := st.Users.FindByID(ctx, userID)
	return u, userLookupError(err, userID)
}

func lockUser(ctx context.Context, st Stores, userID int64) (*model.User, error) {
	u, err := st.Users.LockByID(ctx, userID)
	return u, userLookupError(err, userID)
}

func userLookupError(err error, userID int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindUserNotFound, "user %d not found", userID)
	}
	return err
}

func findRole(ctx context.Context, st Stores, name string) (*model.Role, error) {
	role, err := st.Roles.FindByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(KindRoleNotFound, "role %s not found", name)
	}
	return role, err
}

func findPermission(ctx context.Context, st Stores, name string) (*model.Permission, error) {
	p, err := st.Permissions.FindByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(KindPermissionNotFound, "permission %s not found", name)
	}
	return p, err
}

// loadAccessView reads the user with its roles and effective permissions.
func loadAccessView(ctx context.Context, st Stores, userID int64) (model.UserAccessView, error) {
	u, err := findUser(ctx, st, userID)
	if err != nil {
		return model.UserAccessView{}, err
	}
	roles, err := st.Assignments.RoleNamesOfUser(ctx, u.ID)
	if err != nil {
		return model.UserAccessView{}, err
	}
	permissions, err := st.Assignments.PermissionNamesOfUser(ctx, u.ID)
	if err != nil {
		return model.UserAccessView{}, err
	}
	return newAccessView(*u, roles, permissions), nil
}

// composeAccessView builds the view from preloaded role and grant maps.
func composeAccessView(u model.User, roles []string, permsByRole map[string][]string) model.UserAccessView {
	set := make(map[string]struct{})
	for _, role := range roles {
		for _, p := range permsByRole[role] {
			set[p] = struct{}{}
		}
	}
	permissions := make([]string, 0, len(set))
	for p := range set {
		permissions = append(permissions, p)
	}
	return newAccessView(u, roles, permissions)
}

func newAccessView(u model.User, roles, permissions []string) model.UserAccessView {
	r := append([]string{}, roles...)
	p := append([]string{}, permissions...)
	sort.Strings(r)
	sort.Strings(p)
	return model.UserAccessView{
		UserID:      u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Enabled:     u.Enabled,
		Roles:       r,
		Permissions: p,
	}
}

// roleView reads the permission names and holder count of role.
func roleView(ctx context.Context, st Stores, role *model.Role) (model.RoleView, error) {
	perms, err := st.Grants.PermissionsOfRole(ctx, role.ID)
	if err != nil {
		return model.RoleView{}, err
	}
	count, err := st.Assignments.CountByRole(ctx, role.ID)
	if err != nil {
		return model.RoleView{}, err
	}
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = p.Name
	}
	return model.RoleView{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Permissions: names,
		UserCount:   count,
	}, nil
}

// guardLastAdmin locks the ADMIN role row and fails when no enabled holder
// other than target would remain.
func guardLastAdmin(ctx context.Context, st Stores, target *model.User) error {
	admin, err := st.Roles.LockByName(ctx, model.RoleAdmin)
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindRoleNotFound, "role %s not found", model.RoleAdmin)
	}
	if err != nil {
		return err
	}
	others, err := st.Assignments.CountEnabledHolders(ctx, admin.ID, target.ID)
	if err != nil {
		return err
	}
	if others == 0 {
		return newError(KindCannotRemoveLastAdmin, "user %s is the last enabled administrator", target.Username)
	}
	return nil
}
