// Package queue defines activity events exchanged over RabbitMQ, a publisher
// used by the services and the consumer that writes them to an activity log.
package queue

// Event types published by the services.
const (
	EventUserRegistered    = "user.registered"
	EventTimeLogClockedIn  = "timelog.clocked_in"
	EventTimeLogClockedOut = "timelog.clocked_out"
	EventTimeLogReviewed   = "timelog.reviewed"
	EventInvitationCreated = "invitation.created"
)

// ActivityEvent describes something that happened to a user, time log or
// invitation. Only the fields relevant to Type are set; consumers must not
// need the primary database to render it.
type ActivityEvent struct {
	Type         string `json:"type"`
	OccurredAt   string `json:"occurred_at"`
	UserID       uint64 `json:"user_id,omitempty"`
	ActorID      uint64 `json:"actor_id,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	TimeLogID    uint64 `json:"time_log_id,omitempty"`
	Status       string `json:"status,omitempty"`
	Duration     string `json:"duration,omitempty"`
	InvitationID uint64 `json:"invitation_id,omitempty"`
	ExpiresAt    string `json:"expires_at,omitempty"`
}
