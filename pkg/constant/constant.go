package constant

// Role names carried in access-token claims and checked by RequireRole.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Cookie names used by the HTTP layer. AuthStatusCookie is the only one
// readable from client-side code; the token cookies are HTTP-only.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
	AuthStatusCookie   = "auth_status"
)

const AuthStatusActive = "active"
