package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAssignmentFixture(t *testing.T) (*memDB, *AssignmentService, *recordingAccess, *recordingPublisher) {
	t.Helper()
	db := seededDB()
	access := &recordingAccess{}
	events := &recordingPublisher{}
	svc := NewAssignmentService(db, access, events, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return db, svc, access, events
}

func TestAssignRole(t *testing.T) {
	db, svc, access, events := newAssignmentFixture(t)
	u := db.addUser("doe_j", true)

	view, err := svc.AssignRole(context.Background(), u.ID, " USER ", "root")
	require.NoError(t, err)

	assert.Equal(t, []string{model.RoleUser}, view.Roles)
	assert.Len(t, view.Permissions, 6)
	assert.True(t, db.holds(u, db.mustRole(model.RoleUser)))
	assert.Equal(t, []int64{u.ID}, access.users)
	assert.Equal(t, []model.ActivityType{model.ActivityRoleAssigned}, events.types())

	a := db.assignments[model.AssignmentKey{UserID: u.ID, RoleID: db.mustRole(model.RoleUser).ID}]
	require.NotNil(t, a.AssignedBy)
	assert.Equal(t, "root", *a.AssignedBy)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), a.AssignedAt)
}

func TestAssignRoleTwiceFailsWithAlreadyHasRole(t *testing.T) {
	db, svc, _, events := newAssignmentFixture(t)
	u := db.addUser("doe_j", true)
	ctx := context.Background()

	_, err := svc.AssignRole(ctx, u.ID, model.RoleUser, "root")
	require.NoError(t, err)

	_, err = svc.AssignRole(ctx, u.ID, model.RoleUser, "root")
	require.ErrorIs(t, err, ErrAlreadyHasRole)

	view, err := loadAccessView(ctx, db.Stores(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{model.RoleUser}, view.Roles)
	assert.Len(t, events.types(), 1)
}

func TestAssignRoleMapsConcurrentDuplicate(t *testing.T) {
	db, svc, _, _ := newAssignmentFixture(t)
	u := db.addUser("doe_j", true)
	svc.uow = racingUoW{memDB: db, before: func() {
		db.assign(u, db.mustRole(model.RoleUser), time.Now())
	}}

	_, err := svc.AssignRole(context.Background(), u.ID, model.RoleUser, "root")
	require.ErrorIs(t, err, ErrAlreadyHasRole)
}

func TestAssignRoleValidation(t *testing.T) {
	db, svc, _, _ := newAssignmentFixture(t)
	u := db.addUser("doe_j", true)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID int64
		role   string
		by     string
		want   Kind
	}{
		{"blank role", u.ID, "  ", "root", KindValidation},
		{"blank actor", u.ID, model.RoleUser, "", KindValidation},
		{"unknown user", 9999, model.RoleUser, "root", KindUserNotFound},
		{"unknown role", u.ID, "MODERATOR", "root", KindRoleNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AssignRole(ctx, tt.userID, tt.role, tt.by)
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
	assert.Empty(t, db.assignments)
}

func TestAssignRoleDatabaseErrorHidesCause(t *testing.T) {
	db, svc, access, _ := newAssignmentFixture(t)
	u := db.addUser("doe_j", true)
	db.failOn["Assignments.Insert"] = errors.New("pq: relation user_roles does not exist")

	_, err := svc.AssignRole(context.Background(), u.ID, model.RoleUser, "root")
	require.ErrorIs(t, err, ErrDatabase)

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.NotContains(t, svcErr.Message, "user_roles")
	assert.Empty(t, access.users)
}

func TestRemoveLastAdminIsRefused(t *testing.T) {
	db, svc, _, events := newAssignmentFixture(t)
	admin := db.addUser("root", true)
	db.assign(admin, db.mustRole(model.RoleAdmin), time.Now())
	ctx := context.Background()

	_, err := svc.RemoveRole(ctx, admin.ID, model.RoleAdmin, "root")
	require.ErrorIs(t, err, ErrCannotRemoveLastAdmin)
	assert.Empty(t, events.types())

	holders, err := NewReportService(db, fixedRegistrations{}, zerolog.Nop()).UsersByRole(ctx, model.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, admin.ID, holders[0].UserID)
}

func TestRemoveAdminLocksUserBeforeRole(t *testing.T) {
	db, svc, _, _ := newAssignmentFixture(t)
	a := db.addUser("root", true)
	b := db.addUser("ops", true)
	db.assign(a, db.mustRole(model.RoleAdmin), time.Now())
	db.assign(b, db.mustRole(model.RoleAdmin), time.Now())

	view, err := svc.RemoveRole(context.Background(), a.ID, model.RoleAdmin, "ops")
	require.NoError(t, err)
	assert.Empty(t, view.Roles)
	assert.Equal(t, []string{"user", "role:" + model.RoleAdmin}, db.locks)
}

func TestRemoveAdminCountsOnlyEnabledHolders(t *testing.T) {
	db, svc, _, _ := newAssignmentFixture(t)
	a := db.addUser("root", true)
	b := db.addUser("retired", false)
	db.assign(a, db.mustRole(model.RoleAdmin), time.Now())
	db.assign(b, db.mustRole(model.RoleAdmin), time.Now())

	_, err := svc.RemoveRole(context.Background(), a.ID, model.RoleAdmin, "root")
	require.ErrorIs(t, err, ErrCannotRemoveLastAdmin)
}

func TestRemoveRoleNotHeldIsNoop(t *testing.T) {
	db, svc, access, events := newAssignmentFixture(t)
	u := db.addUser("doe_j", true)

	view, err := svc.RemoveRole(context.Background(), u.ID, model.RoleUser, "root")
	require.NoError(t, err)
	assert.Empty(t, view.Roles)
	assert.Empty(t, access.users)
	assert.Empty(t, events.types())
}

func TestRemoveRoleValidation(t *testing.T) {
	db, svc, access, events := newAssignmentFixture(t)
	u := db.addUser("doe_j", true)
	db.assign(u, db.mustRole(model.RoleUser), time.Now())
	ctx := context.Background()

	tests := []struct {
		name   string
		userID int64
		role   string
		by     string
		want   Kind
	}{
		{"blank role", u.ID, "  ", "root", KindValidation},
		{"blank actor", u.ID, model.RoleUser, " ", KindValidation},
		{"unknown user", 9999, model.RoleUser, "root", KindUserNotFound},
		{"unknown role", u.ID, "MODERATOR", "root", KindRoleNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RemoveRole(ctx, tt.userID, tt.role, tt.by)
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
	assert.True(t, db.holds(u, db.mustRole(model.RoleUser)))
	assert.Empty(t, access.users)
	assert.Empty(t, events.types())
}

func TestRemoveRole(t *testing.T) {
	db, svc, access, events := newAssignmentFixture(t)
	u := db.addUser("doe_j", true)
	db.assign(u, db.mustRole(model.RoleUser), time.Now())

	view, err := svc.RemoveRole(context.Background(), u.ID, model.RoleUser, "root")
	require.NoError(t, err)
	assert.Empty(t, view.Roles)
	assert.Empty(t, view.Permissions)
	assert.False(t, db.holds(u, db.mustRole(model.RoleUser)))
	assert.Equal(t, []int64{u.ID}, access.users)
	assert.Equal(t, []model.ActivityType{model.ActivityRoleRemoved}, events.types())
}

func TestEffectivePermissionUnion(t *testing.T) {
	db, svc, _, _ := newAssignmentFixture(t)
	u := db.addUser("doe_j", true)
	ctx := context.Background()

	_, err := svc.AssignRole(ctx, u.ID, model.RoleUser, "root")
	require.NoError(t, err)
	view, err := svc.AssignRole(ctx, u.ID, model.RoleAdmin, "root")
	require.NoError(t, err)

	assert.Equal(t, []string{model.RoleAdmin, model.RoleUser}, view.Roles)
	assert.ElementsMatch(t, model.AllPermissionNames(), view.Permissions)
	assert.Len(t, view.Permissions, 13)
}

// racingUoW runs before inside the transaction, after the pre-check would have
// passed, to simulate a concurrent writer committing the same pair.
type racingUoW struct {
	*memDB
	before func()
}

func (r racingUoW) WithinTx(ctx context.Context, fn func(Stores) error) error {
	return r.memDB.WithinTx(ctx, func(st Stores) error {
		st.Assignments = racingAssignments{AssignmentStore: st.Assignments, before: r.before}
		st.Grants = racingGrants{GrantStore: st.Grants, before: r.before}
		return fn(st)
	})
}

type racingAssignments struct {
	AssignmentStore
	before func()
}

func (r racingAssignments) Insert(ctx context.Context, a model.UserAssignment) error {
	r.before()
	return r.AssignmentStore.Insert(ctx, a)
}

type racingGrants struct {
	GrantStore
	before func()
}

func (r racingGrants) Insert(ctx context.Context, key model.GrantKey) error {
	r.before()
	return r.GrantStore.Insert(ctx, key)
}
