package model

// Role values carried in the identity token.  Account management lives
// outside this service; only the claims needed for authorization are
// modelled here.
const (
	RoleStudent = "STUDENT"
	RoleStaff   = "STAFF"
	RoleAdmin   = "ADMIN"
)

// UserRef identifies an authenticated actor.  Every engine operation takes
// the acting user explicitly instead of reading it from ambient context.
//
// Fields:
//  ID          – user identifier from the identity provider.
//  Role        – one of the Role* constants.
//  HomeVenueID – the venue the user is registered at (0 when unset).
type UserRef struct {
	ID          uint64
	Role        string
	HomeVenueID uint64
}

// IsAdmin reports whether the user may perform administrative overrides.
func (u UserRef) IsAdmin() bool { return u.Role == RoleAdmin }
