package service

import (
	"context"
	"time"

	"github.com/iliyamo/crowlee-bookings/internal/model"
	"github.com/iliyamo/crowlee-bookings/internal/repository"
)

// UserStore is the credential store.
type UserStore interface {
	Create(ctx context.Context, u model.User) (uint64, error)
	// CreateWithInvitation inserts u and consumes the invitation atomically.
	CreateWithInvitation(ctx context.Context, u model.User, token string, now time.Time) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, u model.User) error
	// UpdateProfile writes name, phone and address, and the password hash
	// when non-nil, in one statement.
	UpdateProfile(ctx context.Context, u model.User, passwordHash *string) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	Delete(ctx context.Context, id uint64) error
}

// InvitationStore persists registration invitations.
type InvitationStore interface {
	Create(ctx context.Context, inv model.Invitation) (uint64, error)
	GetByToken(ctx context.Context, token string) (model.Invitation, error)
	List(ctx context.Context) ([]model.Invitation, error)
	Delete(ctx context.Context, id uint64) error
}

// TimeLogStore persists clock-in/clock-out records.
type TimeLogStore interface {
	Create(ctx context.Context, tl model.TimeLog) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.TimeLog, error)
	GetOpenByUser(ctx context.Context, userID uint64) (model.TimeLog, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.TimeLog, error)
	List(ctx context.Context, f repository.TimeLogFilter) ([]model.TimeLog, error)
	ClockOut(ctx context.Context, id uint64, at time.Time, loc model.Location, workerNote *string) error
	UpdateReview(ctx context.Context, tl model.TimeLog) error
	Delete(ctx context.Context, id uint64) error
}

// SessionRevoker invalidates every session a user obtained before at.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID uint64, at time.Time) error
}
