package model

// Actor is the authenticated caller of an operation, taken from session
// claims.
type Actor struct {
	UserID uint64
	Email  string
	Role   Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanAccess reports whether the actor may act on a record owned by ownerID.
// Admins bypass the ownership check.
func (a Actor) CanAccess(ownerID uint64) bool {
	return a.IsAdmin() || (a.UserID != 0 && a.UserID == ownerID)
}
