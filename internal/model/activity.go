package model

import "time"

// ActivityType names a committed authorization change.
type ActivityType string

const (
	ActivityRoleAssigned      ActivityType = "ROLE_ASSIGNED"
	ActivityRoleRemoved       ActivityType = "ROLE_REMOVED"
	ActivityPermissionGranted ActivityType = "PERMISSION_GRANTED"
	ActivityPermissionRevoked ActivityType = "PERMISSION_REVOKED"
	ActivityPermissionDeleted ActivityType = "PERMISSION_DELETED"
	ActivityUserEnabled       ActivityType = "USER_ENABLED"
	ActivityUserDisabled      ActivityType = "USER_DISABLED"
)

// ActivityEvent is published after an authorization change commits.
type ActivityEvent struct {
	Type       ActivityType `json:"type"`
	Actor      string       `json:"actor"`
	UserID     int64        `json:"user_id,omitempty"`
	Username   string       `json:"username,omitempty"`
	Role       string       `json:"role,omitempty"`
	Permission string       `json:"permission,omitempty"`
	At         time.Time    `json:"at"`
}
