package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ctkuo2438/NUboard/internal/middleware"
	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/ctkuo2438/NUboard/internal/response"
	"github.com/ctkuo2438/NUboard/internal/validator"
	"github.com/gin-gonic/gin"
)

// RolePermissionManager grants and revokes role permissions.
type RolePermissionManager interface {
	Grant(ctx context.Context, roleName, permissionName, grantedBy string) (model.RoleView, error)
	Revoke(ctx context.Context, roleName, permissionName, revokedBy string) (model.RoleView, error)
	DeletePermission(ctx context.Context, permissionName, deletedBy string) error
	PermissionsOf(ctx context.Context, roleName string) ([]model.Permission, error)
	RolesOf(ctx context.Context, permissionName string) ([]string, error)
}

// RoleAssigner assigns and removes user roles.
type RoleAssigner interface {
	AssignRole(ctx context.Context, userID int64, roleName, assignedBy string) (model.UserAccessView, error)
	RemoveRole(ctx context.Context, userID int64, roleName, removedBy string) (model.UserAccessView, error)
}

// AccountStatusSetter enables and disables accounts.
type AccountStatusSetter interface {
	SetEnabled(ctx context.Context, userID int64, enabled *bool, actingUserID int64, actingUsername string) (model.UserStatusView, error)
}

// Reporter answers the read-only admin views.
type Reporter interface {
	ListRoles(ctx context.Context) ([]model.RoleView, error)
	ListPermissions(ctx context.Context) ([]model.PermissionView, error)
	ListUsersWithRoles(ctx context.Context) ([]model.UserAccessView, error)
	UsersByRole(ctx context.Context, roleName string) ([]model.UserAccessView, error)
	SearchUsers(ctx context.Context, f model.UserSearchFilter) ([]model.UserAccessView, error)
	RecentActivity(ctx context.Context, windowDays, limit int) ([]model.RoleActivity, error)
	SystemStatistics(ctx context.Context) (model.SystemStatistics, error)
}

// AuthorizationHandler serves the admin RBAC endpoints.
type AuthorizationHandler struct {
	grants     RolePermissionManager
	assigner   RoleAssigner
	accounts   AccountStatusSetter
	reports    Reporter
	windowDays int
	limit      int
}

// NewAuthorizationHandler creates a new AuthorizationHandler. windowDays and
// limit are the activity feed defaults when the query omits them.
func NewAuthorizationHandler(grants RolePermissionManager, assigner RoleAssigner, accounts AccountStatusSetter, reports Reporter, windowDays, limit int) *AuthorizationHandler {
	return &AuthorizationHandler{
		grants:     grants,
		assigner:   assigner,
		accounts:   accounts,
		reports:    reports,
		windowDays: windowDays,
		limit:      limit,
	}
}

// ─── Roles ──────────────────────────────────────────────────────────

// ListRoles godoc
// GET /api/v1/admin/roles
func (h *AuthorizationHandler) ListRoles(c *gin.Context) {
	roles, err := h.reports.ListRoles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"roles": roles})
}

// UsersByRole godoc
// GET /api/v1/admin/roles/:name/users
func (h *AuthorizationHandler) UsersByRole(c *gin.Context) {
	users, err := h.reports.UsersByRole(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"users": users})
}

// RolePermissions godoc
// GET /api/v1/admin/roles/:name/permissions
func (h *AuthorizationHandler) RolePermissions(c *gin.Context) {
	perms, err := h.grants.PermissionsOf(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"permissions": perms})
}

// GrantPermissionRequest is the payload for granting a permission to a role.
type GrantPermissionRequest struct {
	PermissionName string `json:"permission_name" binding:"required,notblank,max=100"`
}

// GrantPermission godoc
// POST /api/v1/admin/roles/:name/permissions
func (h *AuthorizationHandler) GrantPermission(c *gin.Context) {
	var req GrantPermissionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}

	role, err := h.grants.Grant(c.Request.Context(), c.Param("name"), req.PermissionName, actingUsername(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"role": role})
}

// RevokePermission godoc
// DELETE /api/v1/admin/roles/:name/permissions/:permission
func (h *AuthorizationHandler) RevokePermission(c *gin.Context) {
	role, err := h.grants.Revoke(c.Request.Context(), c.Param("name"), c.Param("permission"), actingUsername(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"role": role})
}

// ─── Permissions ────────────────────────────────────────────────────

// ListPermissions godoc
// GET /api/v1/admin/permissions
func (h *AuthorizationHandler) ListPermissions(c *gin.Context) {
	perms, err := h.reports.ListPermissions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"permissions": perms})
}

// PermissionRoles godoc
// GET /api/v1/admin/permissions/:name/roles
func (h *AuthorizationHandler) PermissionRoles(c *gin.Context) {
	roles, err := h.grants.RolesOf(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"roles": roles})
}

// DeletePermission godoc
// DELETE /api/v1/admin/permissions/:name
// Removes the permission and every grant of it.
func (h *AuthorizationHandler) DeletePermission(c *gin.Context) {
	if err := h.grants.DeletePermission(c.Request.Context(), c.Param("name"), actingUsername(c)); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": c.Param("name")})
}

// ─── Users ──────────────────────────────────────────────────────────

// ListUsersWithRoles godoc
// GET /api/v1/admin/users/roles
func (h *AuthorizationHandler) ListUsersWithRoles(c *gin.Context) {
	users, err := h.reports.ListUsersWithRoles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"users": users})
}

// SearchUsers godoc
// GET /api/v1/admin/users/search?keyword=&role=&enabled=
func (h *AuthorizationHandler) SearchUsers(c *gin.Context) {
	filter := model.UserSearchFilter{
		Keyword: c.Query("keyword"),
		Role:    c.Query("role"),
	}
	if raw := c.Query("enabled"); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"enabled": "enabled must be true or false",
			})
			return
		}
		filter.Enabled = &enabled
	}

	users, err := h.reports.SearchUsers(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"users": users})
}

// AssignRoleRequest is the payload for assigning a role to a user.
type AssignRoleRequest struct {
	RoleName string `json:"role_name" binding:"required,notblank,max=50"`
}

// AssignRole godoc
// POST /api/v1/admin/users/:id/roles
func (h *AuthorizationHandler) AssignRole(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req AssignRoleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}

	view, err := h.assigner.AssignRole(c.Request.Context(), userID, req.RoleName, actingUsername(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": view})
}

// RemoveRole godoc
// DELETE /api/v1/admin/users/:id/roles/:role
func (h *AuthorizationHandler) RemoveRole(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	view, err := h.assigner.RemoveRole(c.Request.Context(), userID, c.Param("role"), actingUsername(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": view})
}

// UpdateStatusRequest is the payload for enabling or disabling an account.
// A missing flag is rejected by the account engine.
type UpdateStatusRequest struct {
	Enabled *bool `json:"enabled"`
}

// UpdateStatus godoc
// PUT /api/v1/admin/users/:id/status
func (h *AuthorizationHandler) UpdateStatus(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}

	claims := middleware.GetClaims(c)
	var actingID int64
	if claims != nil {
		actingID = claims.UserID
	}

	status, err := h.accounts.SetEnabled(c.Request.Context(), userID, req.Enabled, actingID, actingUsername(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": status})
}

// ─── Reports ────────────────────────────────────────────────────────

// RecentActivity godoc
// GET /api/v1/admin/activity/roles?days=&limit=
func (h *AuthorizationHandler) RecentActivity(c *gin.Context) {
	days, ok := queryInt(c, "days", h.windowDays)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", h.limit)
	if !ok {
		return
	}

	activity, err := h.reports.RecentActivity(c.Request.Context(), days, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"activity": activity})
}

// Statistics godoc
// GET /api/v1/admin/statistics
func (h *AuthorizationHandler) Statistics(c *gin.Context) {
	stats, err := h.reports.SystemStatistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// Me godoc
// GET /api/v1/me
// Returns the caller's own roles and effective permissions.
func (h *AuthorizationHandler) Me(c *gin.Context) {
	view := middleware.GetAccess(c)
	if view == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": view})
}

// ─── Helpers ────────────────────────────────────────────────────────

func actingUsername(c *gin.Context) string {
	if claims := middleware.GetClaims(c); claims != nil {
		return claims.Username
	}
	return ""
}

func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			key: key + " must be an integer",
		})
		return 0, false
	}
	return n, true
}
