package service

import (
	"context"
	"time"

	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/ctkuo2438/NUboard/internal/repository"
)

// PermissionStore is the permission catalog.
type PermissionStore interface {
	FindByName(ctx context.Context, name string) (*model.Permission, error)
	FindOrCreate(ctx context.Context, name, description string) (*model.Permission, bool, error)
	List(ctx context.Context) ([]model.Permission, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id int64) error
}

// RoleStore is the role catalog.
type RoleStore interface {
	FindByName(ctx context.Context, name string) (*model.Role, error)
	LockByName(ctx context.Context, name string) (*model.Role, error)
	FindOrCreate(ctx context.Context, name, description string) (*model.Role, bool, error)
	List(ctx context.Context) ([]model.Role, error)
}

// GrantStore holds role-permission associations.
type GrantStore interface {
	Exists(ctx context.Context, key model.GrantKey) (bool, error)
	Insert(ctx context.Context, key model.GrantKey) error
	InsertIfAbsent(ctx context.Context, key model.GrantKey) (bool, error)
	Delete(ctx context.Context, key model.GrantKey) (bool, error)
	DeleteByPermission(ctx context.Context, permissionID int64) (int64, error)
	CountByRole(ctx context.Context, roleID int64) (int, error)
	PermissionsOfRole(ctx context.Context, roleID int64) ([]model.Permission, error)
	RoleNamesOfPermission(ctx context.Context, permissionID int64) ([]string, error)
	PermissionNamesByRole(ctx context.Context) (map[string][]string, error)
}

// UserStore holds user accounts.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
	LockByID(ctx context.Context, id int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
	SetEnabled(ctx context.Context, id int64, enabled bool) error
	List(ctx context.Context) ([]model.User, error)
	ListByRole(ctx context.Context, roleID int64) ([]model.User, error)
	Search(ctx context.Context, f model.UserSearchFilter) ([]model.User, error)
	CountByStatus(ctx context.Context) (total, enabled int, err error)
	CountWithoutRoles(ctx context.Context) (int, error)
}

// AssignmentStore holds user-role associations.
type AssignmentStore interface {
	Exists(ctx context.Context, key model.AssignmentKey) (bool, error)
	Insert(ctx context.Context, a model.UserAssignment) error
	Delete(ctx context.Context, key model.AssignmentKey) (bool, error)
	CountByRole(ctx context.Context, roleID int64) (int, error)
	CountEnabledHolders(ctx context.Context, roleID, excludeUserID int64) (int, error)
	RoleNamesOfUser(ctx context.Context, userID int64) ([]string, error)
	PermissionNamesOfUser(ctx context.Context, userID int64) ([]string, error)
	RoleNamesByUser(ctx context.Context) (map[int64][]string, error)
	Recent(ctx context.Context, since time.Time, limit int) ([]model.RoleActivity, error)
}

// RegistrationCounter reports the number of event registrations.
type RegistrationCounter interface {
	CountRegistrations(ctx context.Context) (int64, error)
}

// Stores is one consistent set of stores, bound either to the pool or to a
// single transaction.
type Stores struct {
	Permissions PermissionStore
	Roles       RoleStore
	Grants      GrantStore
	Users       UserStore
	Assignments AssignmentStore
}

// UnitOfWork hands out stores for reads and runs mutations atomically.
type UnitOfWork interface {
	Stores() Stores
	WithinTx(ctx context.Context, fn func(Stores) error) error
}

type pgUnitOfWork struct {
	store *repository.Store
}

// NewUnitOfWork adapts a repository.Store to UnitOfWork.
func NewUnitOfWork(store *repository.Store) UnitOfWork {
	return &pgUnitOfWork{store: store}
}

func (u *pgUnitOfWork) Stores() Stores {
	return storesOf(u.store.Queries)
}

func (u *pgUnitOfWork) WithinTx(ctx context.Context, fn func(Stores) error) error {
	return u.store.WithTx(ctx, func(q repository.Queries) error {
		return fn(storesOf(q))
	})
}

func storesOf(q repository.Queries) Stores {
	return Stores{
		Permissions: q.Permissions,
		Roles:       q.Roles,
		Grants:      q.Grants,
		Users:       q.Users,
		Assignments: q.Assignments,
	}
}

// AccessInvalidator drops cached access views after a committed change.
type AccessInvalidator interface {
	InvalidateUser(ctx context.Context, userID int64)
	InvalidateAll(ctx context.Context)
}

// Publisher fans out activity events after a committed change.
type Publisher interface {
	Publish(ctx context.Context, ev model.ActivityEvent)
}
