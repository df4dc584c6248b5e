package model

import "time"

// Invitation models an entry in the `invitation_tokens` table. The token is
// single use: UsedAt and UsedBy are set together when a registration consumes
// it.
type Invitation struct {
	ID        uint64
	Token     string
	Role      Role
	ExpiresAt time.Time
	UsedAt    *time.Time
	UsedBy    *uint64
	CreatedBy *uint64
	CreatedAt time.Time
}

// Invitation states reported to admins.
const (
	InvitationActive  = "active"
	InvitationUsed    = "used"
	InvitationExpired = "expired"
)

// Used reports whether the invitation has been consumed.
func (i Invitation) Used() bool { return i.UsedAt != nil }

// Expired reports whether the invitation is past its expiry at now.
func (i Invitation) Expired(now time.Time) bool { return !now.Before(i.ExpiresAt) }

// Status returns the display state of the invitation at now. A used
// invitation stays "used" after it would have expired.
func (i Invitation) Status(now time.Time) string {
	switch {
	case i.Used():
		return InvitationUsed
	case i.Expired(now):
		return InvitationExpired
	default:
		return InvitationActive
	}
}
