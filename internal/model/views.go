package model

import "time"

// RoleView is a role with its permission names and holder count.
type RoleView struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
	UserCount   int      `json:"user_count"`
}

// PermissionView is a permission with the names of roles granting it.
type PermissionView struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Roles       []string `json:"roles"`
}

// UserAccessView is a user with role names and effective permission set, both sorted.
type UserAccessView struct {
	UserID      int64    `json:"user_id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Enabled     bool     `json:"enabled"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// HasRole reports whether the view holds role.
func (v UserAccessView) HasRole(role string) bool {
	for _, r := range v.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the effective set contains permission.
func (v UserAccessView) HasPermission(permission string) bool {
	for _, p := range v.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// UserStatusView is returned by account status changes.
type UserStatusView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Enabled  bool   `json:"enabled"`
}

// RoleActivity is one assignment in the recent activity feed.
type RoleActivity struct {
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	RoleName   string    `json:"role_name"`
	AssignedAt time.Time `json:"assigned_at"`
	AssignedBy *string   `json:"assigned_by"`
}

// UserSearchFilter narrows a user search. Blank or nil fields match everything.
type UserSearchFilter struct {
	Keyword string
	Role    string
	Enabled *bool
}

// UserStatistics aggregates account counts.
type UserStatistics struct {
	Total        int            `json:"total"`
	Enabled      int            `json:"enabled"`
	Disabled     int            `json:"disabled"`
	ByRole       map[string]int `json:"by_role"`
	WithoutRoles int            `json:"without_roles"`
}

// RegistrationStatistics aggregates event registration counts.
type RegistrationStatistics struct {
	Total int64 `json:"total"`
}

// RoleStatistics counts holders and grants of a single role.
type RoleStatistics struct {
	UserCount       int `json:"user_count"`
	PermissionCount int `json:"permission_count"`
}

// SystemStatistics is the admin dashboard summary.
type SystemStatistics struct {
	Users         UserStatistics            `json:"users"`
	Registrations RegistrationStatistics    `json:"registrations"`
	Roles         map[string]RoleStatistics `json:"roles"`
}

// CatalogSummary reports the catalog state after bootstrap.
type CatalogSummary struct {
	Permissions   int            `json:"permissions"`
	Roles         int            `json:"roles"`
	GrantsPerRole map[string]int `json:"grants_per_role"`
	SeededRoles   []string       `json:"seeded_roles"`
}
