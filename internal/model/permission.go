package model

// Permission is a named capability that roles can be granted.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Permission names seeded by the catalog bootstrap.
const (
	PermissionEventView          = "EVENT_VIEW"
	PermissionEventCreate        = "EVENT_CREATE"
	PermissionEventUpdate        = "EVENT_UPDATE"
	PermissionEventDelete        = "EVENT_DELETE"
	PermissionEventRegister      = "EVENT_REGISTER"
	PermissionEventUnregister    = "EVENT_UNREGISTER"
	PermissionUserView           = "USER_VIEW"
	PermissionUserUpdate         = "USER_UPDATE"
	PermissionUserDelete         = "USER_DELETE"
	PermissionRegistrationView   = "REGISTRATION_VIEW"
	PermissionRegistrationManage = "REGISTRATION_MANAGE"
	PermissionLocationView       = "LOCATION_VIEW"
	PermissionCollegeView        = "COLLEGE_VIEW"
)

// CatalogPermission is a seedable (name, description) pair.
type CatalogPermission struct {
	Name        string
	Description string
}

// CatalogPermissions is the fixed permission catalog, in seeding order.
var CatalogPermissions = []CatalogPermission{
	{PermissionEventView, "View events"},
	{PermissionEventCreate, "Create events"},
	{PermissionEventUpdate, "Update events"},
	{PermissionEventDelete, "Delete events"},
	{PermissionEventRegister, "Register for events"},
	{PermissionEventUnregister, "Unregister from events"},
	{PermissionUserView, "View all users"},
	{PermissionUserUpdate, "Update users"},
	{PermissionUserDelete, "Delete users"},
	{PermissionRegistrationView, "View event registrations"},
	{PermissionRegistrationManage, "Manage all registrations"},
	{PermissionLocationView, "View locations"},
	{PermissionCollegeView, "View colleges"},
}

// AllPermissionNames returns every catalog permission name.
func AllPermissionNames() []string {
	names := make([]string, len(CatalogPermissions))
	for i, p := range CatalogPermissions {
		names[i] = p.Name
	}
	return names
}
