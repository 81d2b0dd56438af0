package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired   ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid    ErrCode = "TOKEN_INVALID"
	ErrAccountDisabled ErrCode = "ACCOUNT_DISABLED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrAdminAccessOnly ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound           ErrCode = "NOT_FOUND"
	ErrUserNotFound       ErrCode = "USER_NOT_FOUND"
	ErrRoleNotFound       ErrCode = "ROLE_NOT_FOUND"
	ErrPermissionNotFound ErrCode = "PERMISSION_NOT_FOUND"

	// ─── Authorization rules ───────────────────────────────────────────
	ErrUserAlreadyHasRole       ErrCode = "USER_ALREADY_HAS_ROLE"
	ErrPermissionAlreadyGranted ErrCode = "PERMISSION_ALREADY_GRANTED"
	ErrCannotRemoveLastAdmin    ErrCode = "CANNOT_REMOVE_LAST_ADMIN"
	ErrCannotDisableOwnAccount  ErrCode = "CANNOT_DISABLE_OWN_ACCOUNT"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrDatabase ErrCode = "DATABASE_ERROR"
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrAccountDisabled:
		return "This account has been disabled."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrUserNotFound:
		return "User not found."
	case ErrRoleNotFound:
		return "Role not found."
	case ErrPermissionNotFound:
		return "Permission not found."

	// ─── Authorization rules ───────────────────────────────────────────
	case ErrUserAlreadyHasRole:
		return "User already has this role."
	case ErrPermissionAlreadyGranted:
		return "Role already has this permission."
	case ErrCannotRemoveLastAdmin:
		return "Cannot remove the last administrator."
	case ErrCannotDisableOwnAccount:
		return "You cannot disable your own account."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrDatabase:
		return "A database error occurred."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
