package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/ctkuo2438/NUboard/internal/repository"
)

// memDB is an in-memory UnitOfWork. WithinTx restores the previous state when
// fn fails, so tests observe rollback the same way Postgres would behave.
type memDB struct {
	mu sync.Mutex

	nextID      int64
	users       map[int64]model.User
	permissions map[int64]model.Permission
	roles       map[int64]model.Role
	grants      model.GrantSet
	assignments model.AssignmentSet

	// failOn makes the named store method return the error.
	failOn map[string]error
	// locks records lock acquisitions in order.
	locks []string
	txs   int
}

func newMemDB() *memDB {
	return &memDB{
		users:       map[int64]model.User{},
		permissions: map[int64]model.Permission{},
		roles:       map[int64]model.Role{},
		grants:      model.GrantSet{},
		assignments: model.AssignmentSet{},
		failOn:      map[string]error{},
	}
}

func (db *memDB) Stores() Stores {
	return Stores{
		Permissions: memPermissions{db},
		Roles:       memRoles{db},
		Grants:      memGrants{db},
		Users:       memUsers{db},
		Assignments: memAssignments{db},
	}
}

func (db *memDB) WithinTx(ctx context.Context, fn func(Stores) error) error {
	db.mu.Lock()
	snap := db.snapshot()
	db.txs++
	db.mu.Unlock()

	if err := fn(db.Stores()); err != nil {
		db.mu.Lock()
		db.restore(snap)
		db.mu.Unlock()
		return err
	}
	return nil
}

type memSnapshot struct {
	nextID      int64
	users       map[int64]model.User
	permissions map[int64]model.Permission
	roles       map[int64]model.Role
	grants      model.GrantSet
	assignments model.AssignmentSet
}

func (db *memDB) snapshot() memSnapshot {
	s := memSnapshot{
		nextID:      db.nextID,
		users:       make(map[int64]model.User, len(db.users)),
		permissions: make(map[int64]model.Permission, len(db.permissions)),
		roles:       make(map[int64]model.Role, len(db.roles)),
		grants:      make(model.GrantSet, len(db.grants)),
		assignments: make(model.AssignmentSet, len(db.assignments)),
	}
	for k, v := range db.users {
		s.users[k] = v
	}
	for k, v := range db.permissions {
		s.permissions[k] = v
	}
	for k, v := range db.roles {
		s.roles[k] = v
	}
	for k, v := range db.grants {
		s.grants[k] = v
	}
	for k, v := range db.assignments {
		s.assignments[k] = v
	}
	return s
}

func (db *memDB) restore(s memSnapshot) {
	db.nextID = s.nextID
	db.users = s.users
	db.permissions = s.permissions
	db.roles = s.roles
	db.grants = s.grants
	db.assignments = s.assignments
}

func (db *memDB) fault(method string) error {
	return db.failOn[method]
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

// ─── Fixtures ───────────────────────────────────────────────────────

func (db *memDB) addUser(username string, enabled bool) model.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	u := model.User{
		ID:           db.id(),
		Username:     username,
		Email:        username + "@northeastern.edu",
		Enabled:      enabled,
		AuthProvider: model.AuthProviderGoogle,
		CreatedAt:    time.Now().UTC(),
	}
	db.users[u.ID] = u
	return u
}

func (db *memDB) addRole(name string) model.Role {
	db.mu.Lock()
	defer db.mu.Unlock()
	r := model.Role{ID: db.id(), Name: name}
	db.roles[r.ID] = r
	return r
}

func (db *memDB) addPermission(name string) model.Permission {
	db.mu.Lock()
	defer db.mu.Unlock()
	p := model.Permission{ID: db.id(), Name: name}
	db.permissions[p.ID] = p
	return p
}

func (db *memDB) grant(role model.Role, perms ...model.Permission) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, p := range perms {
		db.grants.Add(model.RoleGrant{RoleID: role.ID, PermissionID: p.ID, CreatedAt: time.Now().UTC()})
	}
}

func (db *memDB) assign(u model.User, r model.Role, at time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	by := "fixture"
	db.assignments.Add(model.UserAssignment{UserID: u.ID, RoleID: r.ID, AssignedAt: at, AssignedBy: &by})
}

func (db *memDB) holds(u model.User, r model.Role) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.assignments[model.AssignmentKey{UserID: u.ID, RoleID: r.ID}]
	return ok
}

func (db *memDB) granted(r model.Role, p model.Permission) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.grants[model.GrantKey{RoleID: r.ID, PermissionID: p.ID}]
	return ok
}

func (db *memDB) user(id int64) model.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.users[id]
}

func (db *memDB) roleByName(name string) (model.Role, bool) {
	for _, r := range db.roles {
		if r.Name == name {
			return r, true
		}
	}
	return model.Role{}, false
}

func (db *memDB) permissionByName(name string) (model.Permission, bool) {
	for _, p := range db.permissions {
		if p.Name == name {
			return p, true
		}
	}
	return model.Permission{}, false
}

// ─── Permissions ────────────────────────────────────────────────────

type memPermissions struct{ db *memDB }

func (m memPermissions) FindByName(ctx context.Context, name string) (*model.Permission, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.fault("Permissions.FindByName"); err != nil {
		return nil, err
	}
	p, ok := m.db.permissionByName(name)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (m memPermissions) FindOrCreate(ctx context.Context, name, description string) (*model.Permission, bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.fault("Permissions.FindOrCreate"); err != nil {
		return nil, false, err
	}
	if p, ok := m.db.permissionByName(name); ok {
		return &p, false, nil
	}
	p := model.Permission{ID: m.db.id(), Name: name, Description: description}
	m.db.permissions[p.ID] = p
	return &p, true, nil
}

func (m memPermissions) List(ctx context.Context) ([]model.Permission, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.fault("Permissions.List"); err != nil {
		return nil, err
	}
	out := make([]model.Permission, 0, len(m.db.permissions))
	for _, p := range m.db.permissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m memPermissions) Count(ctx context.Context) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return len(m.db.permissions), nil
}

func (m memPermissions) Delete(ctx context.Context, id int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.fault("Permissions.Delete"); err != nil {
		return err
	}
	if _, ok := m.db.permissions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.db.permissions, id)
	return nil
}

// ─── Roles ──────────────────────────────────────────────────────────

type memRoles struct{ db *memDB }

func (m memRoles) FindByName(ctx context.Context, name string) (*model.Role, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.fault("Roles.FindByName"); err != nil {
		return nil, err
	}
	r, ok := m.db.roleByName(name)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (m memRoles) LockByName(ctx context.Context, name string) (*model.Role, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.locks = append(m.db.locks, "role:"+name)
	r, ok := m.db.roleByName(name)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (m memRoles) FindOrCreate(ctx context.Context, name, description string) (*model.Role, bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if r, ok := m.db.roleByName(name); ok {
		return &r, false, nil
	}
	r := model.Role{ID: m.db.id(), Name: name, Description: description}
	m.db.roles[r.ID] = r
	return &r, true, nil
}

func (m memRoles) List(ctx context.Context) ([]model.Role, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := make([]model.Role, 0, len(m.db.roles))
	for _, r := range m.db.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ─── Grants ─────────────────────────────────────────────────────────

type memGrants struct{ db *memDB }

func (m memGrants) Exists(ctx context.Context, key model.GrantKey) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	_, ok := m.db.grants[key]
	return ok, nil
}

func (m memGrants) Insert(ctx context.Context, key model.GrantKey) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.fault("Grants.Insert"); err != nil {
		return err
	}
	if !m.db.grants.Add(model.RoleGrant{RoleID: key.RoleID, PermissionID: key.PermissionID, CreatedAt: time.Now().UTC()}) {
		return repository.ErrDuplicate
	}
	return nil
}

func (m memGrants) InsertIfAbsent(ctx context.Context, key model.GrantKey) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.fault("Grants.InsertIfAbsent"); err != nil {
		return false, err
	}
	return m.db.grants.Add(model.RoleGrant{RoleID: key.RoleID, PermissionID: key.PermissionID, CreatedAt: time.Now().UTC()}), nil
}

func (m memGrants) Delete(ctx context.Context, key model.GrantKey) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.db.grants.Remove(key), nil
}

func (m memGrants) DeleteByPermission(ctx context.Context, permissionID int64) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for k := range m.db.grants {
		if k.PermissionID == permissionID {
			delete(m.db.grants, k)
			n++
		}
	}
	return n, nil
}

func (m memGrants) CountByRole(ctx context.Context, roleID int64) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	n := 0
	for k := range m.db.grants {
		if k.RoleID == roleID {
			n++
		}
	}
	return n, nil
}

func (m memGrants) PermissionsOfRole(ctx context.Context, roleID int64) ([]model.Permission, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.Permission
	for k := range m.db.grants {
		if k.RoleID == roleID {
			out = append(out, m.db.permissions[k.PermissionID])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m memGrants) RoleNamesOfPermission(ctx context.Context, permissionID int64) ([]string, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []string
	for k := range m.db.grants {
		if k.PermissionID == permissionID {
			out = append(out, m.db.roles[k.RoleID].Name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m memGrants) PermissionNamesByRole(ctx context.Context) (map[string][]string, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := map[string][]string{}
	for k := range m.db.grants {
		role := m.db.roles[k.RoleID].Name
		out[role] = append(out[role], m.db.permissions[k.PermissionID].Name)
	}
	return out, nil
}

// ─── Users ──────────────────────────────────────────────────────────

type memUsers struct{ db *memDB }

func (m memUsers) FindByID(ctx context.Context, id int64) (*model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.fault("Users.FindByID"); err != nil {
		return nil, err
	}
	u, ok := m.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m memUsers) LockByID(ctx context.Context, id int64) (*model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.locks = append(m.db.locks, "user")
	if err := m.db.fault("Users.LockByID"); err != nil {
		return nil, err
	}
	u, ok := m.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, u := range m.db.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memUsers) Create(ctx context.Context, u *model.User) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	u.ID = m.db.id()
	u.CreatedAt = time.Now().UTC()
	m.db.users[u.ID] = *u
	return nil
}

func (m memUsers) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.fault("Users.SetEnabled"); err != nil {
		return err
	}
	u, ok := m.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Enabled = enabled
	m.db.users[id] = u
	return nil
}

func (m memUsers) sorted(keep func(model.User) bool) []model.User {
	var out []model.User
	for _, u := range m.db.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m memUsers) List(ctx context.Context) ([]model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.fault("Users.List"); err != nil {
		return nil, err
	}
	return m.sorted(func(model.User) bool { return true }), nil
}

func (m memUsers) ListByRole(ctx context.Context, roleID int64) ([]model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.sorted(func(u model.User) bool {
		_, ok := m.db.assignments[model.AssignmentKey{UserID: u.ID, RoleID: roleID}]
		return ok
	}), nil
}

func (m memUsers) Search(ctx context.Context, f model.UserSearchFilter) ([]model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.sorted(func(u model.User) bool {
		if f.Keyword != "" &&
			!strings.Contains(strings.ToLower(u.Username), f.Keyword) &&
			!strings.Contains(strings.ToLower(u.Email), f.Keyword) {
			return false
		}
		if f.Enabled != nil && u.Enabled != *f.Enabled {
			return false
		}
		if f.Role != "" {
			r, ok := m.db.roleByName(f.Role)
			if !ok {
				return false
			}
			if _, held := m.db.assignments[model.AssignmentKey{UserID: u.ID, RoleID: r.ID}]; !held {
				return false
			}
		}
		return true
	}), nil
}

func (m memUsers) CountByStatus(ctx context.Context) (int, int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	enabled := 0
	for _, u := range m.db.users {
		if u.Enabled {
			enabled++
		}
	}
	return len(m.db.users), enabled, nil
}

func (m memUsers) CountWithoutRoles(ctx context.Context) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	held := map[int64]bool{}
	for k := range m.db.assignments {
		held[k.UserID] = true
	}
	return len(m.db.users) - len(held), nil
}

// ─── Assignments ────────────────────────────────────────────────────

type memAssignments struct{ db *memDB }

func (m memAssignments) Exists(ctx context.Context, key model.AssignmentKey) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	_, ok := m.db.assignments[key]
	return ok, nil
}

func (m memAssignments) Insert(ctx context.Context, a model.UserAssignment) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.fault("Assignments.Insert"); err != nil {
		return err
	}
	if !m.db.assignments.Add(a) {
		return repository.ErrDuplicate
	}
	return nil
}

func (m memAssignments) Delete(ctx context.Context, key model.AssignmentKey) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.db.assignments.Remove(key), nil
}

func (m memAssignments) CountByRole(ctx context.Context, roleID int64) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	n := 0
	for k := range m.db.assignments {
		if k.RoleID == roleID {
			n++
		}
	}
	return n, nil
}

func (m memAssignments) CountEnabledHolders(ctx context.Context, roleID, excludeUserID int64) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	n := 0
	for k := range m.db.assignments {
		if k.RoleID == roleID && k.UserID != excludeUserID && m.db.users[k.UserID].Enabled {
			n++
		}
	}
	return n, nil
}

func (m memAssignments) RoleNamesOfUser(ctx context.Context, userID int64) ([]string, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []string
	for k := range m.db.assignments {
		if k.UserID == userID {
			out = append(out, m.db.roles[k.RoleID].Name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m memAssignments) PermissionNamesOfUser(ctx context.Context, userID int64) ([]string, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	set := map[string]bool{}
	for a := range m.db.assignments {
		if a.UserID != userID {
			continue
		}
		for g := range m.db.grants {
			if g.RoleID == a.RoleID {
				set[m.db.permissions[g.PermissionID].Name] = true
			}
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (m memAssignments) RoleNamesByUser(ctx context.Context) (map[int64][]string, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := map[int64][]string{}
	for k := range m.db.assignments {
		out[k.UserID] = append(out[k.UserID], m.db.roles[k.RoleID].Name)
	}
	return out, nil
}

func (m memAssignments) Recent(ctx context.Context, since time.Time, limit int) ([]model.RoleActivity, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.RoleActivity
	for _, a := range m.db.assignments {
		if !a.AssignedAt.After(since) {
			continue
		}
		u := m.db.users[a.UserID]
		out = append(out, model.RoleActivity{
			UserID:     u.ID,
			Username:   u.Username,
			Email:      u.Email,
			RoleName:   m.db.roles[a.RoleID].Name,
			AssignedAt: a.AssignedAt,
			AssignedBy: a.AssignedBy,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.After(out[j].AssignedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ─── Side effects ───────────────────────────────────────────────────

type recordingAccess struct {
	mu    sync.Mutex
	users []int64
	all   int
}

func (r *recordingAccess) InvalidateUser(ctx context.Context, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
}

func (r *recordingAccess) InvalidateAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all++
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.ActivityEvent
}

func (r *recordingPublisher) Publish(ctx context.Context, ev model.ActivityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingPublisher) types() []model.ActivityType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ActivityType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type fixedRegistrations struct {
	total int64
	err   error
}

func (f fixedRegistrations) CountRegistrations(ctx context.Context) (int64, error) {
	return f.total, f.err
}

// seededDB returns a memDB holding the bootstrapped catalog.
func seededDB() *memDB {
	db := newMemDB()
	for _, cp := range model.CatalogPermissions {
		db.addPermission(cp.Name)
	}
	for _, cr := range model.CatalogRoles {
		role := db.addRole(cr.Name)
		for _, name := range cr.Permissions {
			p, _ := db.permissionByName(name)
			db.grant(role, p)
		}
	}
	return db
}

func (db *memDB) mustRole(name string) model.Role {
	db.mu.Lock()
	defer db.mu.Unlock()
	r, ok := db.roleByName(name)
	if !ok {
		panic("missing role " + name)
	}
	return r
}

func (db *memDB) mustPermission(name string) model.Permission {
	db.mu.Lock()
	defer db.mu.Unlock()
	p, ok := db.permissionByName(name)
	if !ok {
		panic("missing permission " + name)
	}
	return p
}
