package model

// Well-known role names. Both are created by the catalog bootstrap.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// RoleNameMaxLength is the column width of roles.name.
const RoleNameMaxLength = 50

// Role is a named bundle of permissions.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CatalogRole is a seedable role together with the permissions it starts with.
type CatalogRole struct {
	Name        string
	Description string
	Permissions []string
}

// CatalogRoles lists the seeded roles. ADMIN carries the full catalog.
var CatalogRoles = []CatalogRole{
	{
		Name:        RoleUser,
		Description: "Basic user role",
		Permissions: []string{
			PermissionEventCreate,
			PermissionEventView,
			PermissionEventRegister,
			PermissionEventUnregister,
			PermissionLocationView,
			PermissionCollegeView,
		},
	},
	{
		Name:        RoleAdmin,
		Description: "Administrator role with full access",
		Permissions: AllPermissionNames(),
	},
}
