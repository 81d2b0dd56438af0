package model

import "time"

// AssignmentKey identifies a user-role association.
type AssignmentKey struct {
	UserID int64
	RoleID int64
}

// UserAssignment links one user to one role with audit metadata.
type UserAssignment struct {
	UserID     int64     `json:"user_id"`
	RoleID     int64     `json:"role_id"`
	AssignedAt time.Time `json:"assigned_at"`
	AssignedBy *string   `json:"assigned_by"`
}

// Key returns the pair identity of the assignment.
func (a UserAssignment) Key() AssignmentKey {
	return AssignmentKey{UserID: a.UserID, RoleID: a.RoleID}
}

// AssignmentSet is a set of assignments keyed by their pair.
type AssignmentSet map[AssignmentKey]UserAssignment

// Add inserts a and reports whether it was absent.
func (s AssignmentSet) Add(a UserAssignment) bool {
	if _, ok := s[a.Key()]; ok {
		return false
	}
	s[a.Key()] = a
	return true
}

// Remove deletes the assignment for k and reports whether it was present.
func (s AssignmentSet) Remove(k AssignmentKey) bool {
	if _, ok := s[k]; !ok {
		return false
	}
	delete(s, k)
	return true
}
