package service

import (
	"context"
	"strings"
	"time"

	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/rs/zerolog"
)

// Defaults for RecentActivity when the caller passes a non-positive value.
const (
	DefaultActivityWindowDays = 30
	DefaultActivityLimit      = 50
)

// ReportService answers read-only listings and aggregate reports.
type ReportService struct {
	uow           UnitOfWork
	registrations RegistrationCounter
	log           zerolog.Logger
	now           func() time.Time
}

// NewReportService creates a new ReportService.
func NewReportService(uow UnitOfWork, registrations RegistrationCounter, log zerolog.Logger) *ReportService {
	return &ReportService{
		uow:           uow,
		registrations: registrations,
		log:           log.With().Str("component", "report_service").Logger(),
		now:           time.Now,
	}
}

// ListRoles returns every role ordered by name with its permissions and holder count.
func (s *ReportService) ListRoles(ctx context.Context) ([]model.RoleView, error) {
	st := s.uow.Stores()
	roles, err := st.Roles.List(ctx)
	if err != nil {
		return nil, s.fail(err, "list_roles")
	}

	views := make([]model.RoleView, 0, len(roles))
	for i := range roles {
		v, err := roleView(ctx, st, &roles[i])
		if err != nil {
			return nil, s.fail(err, "list_roles")
		}
		views = append(views, v)
	}
	return views, nil
}

// ListPermissions returns every permission ordered by name with the roles granting it.
func (s *ReportService) ListPermissions(ctx context.Context) ([]model.PermissionView, error) {
	st := s.uow.Stores()
	perms, err := st.Permissions.List(ctx)
	if err != nil {
		return nil, s.fail(err, "list_permissions")
	}

	views := make([]model.PermissionView, 0, len(perms))
	for _, p := range perms {
		roles, err := st.Grants.RoleNamesOfPermission(ctx, p.ID)
		if err != nil {
			return nil, s.fail(err, "list_permissions")
		}
		if roles == nil {
			roles = []string{}
		}
		views = append(views, model.PermissionView{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Roles:       roles,
		})
	}
	return views, nil
}

// ListUsersWithRoles returns every user with role names and effective permissions.
func (s *ReportService) ListUsersWithRoles(ctx context.Context) ([]model.UserAccessView, error) {
	users, err := s.uow.Stores().Users.List(ctx)
	if err != nil {
		return nil, s.fail(err, "list_users")
	}
	views, err := s.compose(ctx, users)
	if err != nil {
		return nil, s.fail(err, "list_users")
	}
	return views, nil
}

// UsersByRole returns the holders of a role with their access views.
func (s *ReportService) UsersByRole(ctx context.Context, roleName string) ([]model.UserAccessView, error) {
	roleName, err := requireText(roleName, "role name")
	if err != nil {
		return nil, err
	}
	st := s.uow.Stores()
	role, err := findRole(ctx, st, roleName)
	if err != nil {
		return nil, s.fail(err, "users_by_role")
	}
	users, err := st.Users.ListByRole(ctx, role.ID)
	if err != nil {
		return nil, s.fail(err, "users_by_role")
	}
	views, err := s.compose(ctx, users)
	if err != nil {
		return nil, s.fail(err, "users_by_role")
	}
	return views, nil
}

// SearchUsers returns users matching every supplied predicate. The keyword is a
// case-insensitive substring of username or email.
func (s *ReportService) SearchUsers(ctx context.Context, f model.UserSearchFilter) ([]model.UserAccessView, error) {
	f.Keyword = strings.ToLower(strings.TrimSpace(f.Keyword))
	f.Role = strings.TrimSpace(f.Role)

	users, err := s.uow.Stores().Users.Search(ctx, f)
	if err != nil {
		return nil, s.fail(err, "search_users")
	}
	views, err := s.compose(ctx, users)
	if err != nil {
		return nil, s.fail(err, "search_users")
	}
	return views, nil
}

// RecentActivity returns role assignments made within the trailing window,
// newest first, truncated to limit.
func (s *ReportService) RecentActivity(ctx context.Context, windowDays, limit int) ([]model.RoleActivity, error) {
	if windowDays <= 0 {
		windowDays = DefaultActivityWindowDays
	}
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	since := s.now().UTC().AddDate(0, 0, -windowDays)

	activity, err := s.uow.Stores().Assignments.Recent(ctx, since, limit)
	if err != nil {
		return nil, s.fail(err, "recent_activity")
	}
	if activity == nil {
		activity = []model.RoleActivity{}
	}
	return activity, nil
}

// SystemStatistics aggregates user, registration and role counts.
func (s *ReportService) SystemStatistics(ctx context.Context) (model.SystemStatistics, error) {
	st := s.uow.Stores()

	total, enabled, err := st.Users.CountByStatus(ctx)
	if err != nil {
		return model.SystemStatistics{}, s.fail(err, "statistics")
	}
	withoutRoles, err := st.Users.CountWithoutRoles(ctx)
	if err != nil {
		return model.SystemStatistics{}, s.fail(err, "statistics")
	}
	registrations, err := s.registrations.CountRegistrations(ctx)
	if err != nil {
		return model.SystemStatistics{}, s.fail(err, "statistics")
	}
	roles, err := st.Roles.List(ctx)
	if err != nil {
		return model.SystemStatistics{}, s.fail(err, "statistics")
	}

	stats := model.SystemStatistics{
		Users: model.UserStatistics{
			Total:        total,
			Enabled:      enabled,
			Disabled:     total - enabled,
			ByRole:       map[string]int{model.RoleUser: 0, model.RoleAdmin: 0},
			WithoutRoles: withoutRoles,
		},
		Registrations: model.RegistrationStatistics{Total: registrations},
		Roles:         make(map[string]model.RoleStatistics, len(roles)),
	}

	for _, role := range roles {
		users, err := st.Assignments.CountByRole(ctx, role.ID)
		if err != nil {
			return model.SystemStatistics{}, s.fail(err, "statistics")
		}
		grants, err := st.Grants.CountByRole(ctx, role.ID)
		if err != nil {
			return model.SystemStatistics{}, s.fail(err, "statistics")
		}
		stats.Roles[role.Name] = model.RoleStatistics{UserCount: users, PermissionCount: grants}
		if _, ok := stats.Users.ByRole[role.Name]; ok {
			stats.Users.ByRole[role.Name] = users
		}
	}
	return stats, nil
}

func (s *ReportService) compose(ctx context.Context, users []model.User) ([]model.UserAccessView, error) {
	st := s.uow.Stores()
	rolesByUser, err := st.Assignments.RoleNamesByUser(ctx)
	if err != nil {
		return nil, err
	}
	permsByRole, err := st.Grants.PermissionNamesByRole(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]model.UserAccessView, 0, len(users))
	for _, u := range users {
		views = append(views, composeAccessView(u, rolesByUser[u.ID], permsByRole))
	}
	return views, nil
}

func (s *ReportService) fail(err error, op string) error {
	out := asServiceError(err)
	if KindOf(out) == KindDatabase {
		s.log.Error().Err(err).Str("op", op).Msg("Report query failed")
	}
	return out
}
