package model

import "time"

// GrantKey identifies a role-permission association.
type GrantKey struct {
	RoleID       int64
	PermissionID int64
}

// RoleGrant links one role to one permission.
type RoleGrant struct {
	RoleID       int64     `json:"role_id"`
	PermissionID int64     `json:"permission_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Key returns the pair identity of the grant.
func (g RoleGrant) Key() GrantKey {
	return GrantKey{RoleID: g.RoleID, PermissionID: g.PermissionID}
}

// GrantSet is a set of grants keyed by their pair.
type GrantSet map[GrantKey]RoleGrant

// Add inserts g and reports whether it was absent.
func (s GrantSet) Add(g RoleGrant) bool {
	if _, ok := s[g.Key()]; ok {
		return false
	}
	s[g.Key()] = g
	return true
}

// Remove deletes the grant for k and reports whether it was present.
func (s GrantSet) Remove(k GrantKey) bool {
	if _, ok := s[k]; !ok {
		return false
	}
	delete(s, k)
	return true
}
