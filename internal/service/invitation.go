package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowlee-bookings/internal/metrics"
	"github.com/iliyamo/crowlee-bookings/internal/model"
	"github.com/iliyamo/crowlee-bookings/internal/queue"
	"github.com/iliyamo/crowlee-bookings/internal/repository"
	"github.com/iliyamo/crowlee-bookings/internal/utils"
)

// Invitation lifetime bounds, in hours.
const (
	DefaultInvitationHours = 48
	MinInvitationHours     = 1
	MaxInvitationHours     = 168
)

// InvitationService issues and validates single-use signup invitations.
// Consumption happens inside AuthService.Register.
type InvitationService struct {
	Invitations InvitationStore
	Events      queue.Publisher
	Log         logrus.FieldLogger
	BaseURL     string
	Now         func() time.Time
	NewToken    func() (string, error)
}

func NewInvitationService(invitations InvitationStore, baseURL string, events queue.Publisher, log logrus.FieldLogger) *InvitationService {
	return &InvitationService{
		Invitations: invitations,
		Events:      events,
		Log:         log,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Now:         time.Now,
		NewToken:    utils.NewInvitationToken,
	}
}

// CreatedInvitation is a new invitation and the link to share with the
// invitee.
type CreatedInvitation struct {
	Invitation model.Invitation
	URL        string
}

// Create issues an invitation for role that expires after hours. A nil
// hours uses the default lifetime.
func (s *InvitationService) Create(ctx context.Context, adminID uint64, role string, hours *int) (CreatedInvitation, error) {
	r, ok := model.ParseRole(role)
	if !ok || r == model.RoleAdmin {
		return CreatedInvitation{}, validation("role must be client or worker")
	}
	h := DefaultInvitationHours
	if hours != nil {
		h = *hours
	}
	if h < MinInvitationHours || h > MaxInvitationHours {
		return CreatedInvitation{}, validation("expiresInHours must be between 1 and 168")
	}

	token, err := s.NewToken()
	if err != nil {
		return CreatedInvitation{}, internal("generate invitation token", err)
	}
	now := s.Now().UTC()
	inv := model.Invitation{
		Token:     token,
		Role:      r,
		ExpiresAt: now.Add(time.Duration(h) * time.Hour),
		CreatedAt: now,
	}
	if adminID != 0 {
		inv.CreatedBy = &adminID
	}
	inv.ID, err = s.Invitations.Create(ctx, inv)
	if err != nil {
		return CreatedInvitation{}, internal("create invitation", err)
	}

	metrics.ObserveInvitation("created")
	s.Log.WithFields(logrus.Fields{"admin_id": adminID, "invitation_id": inv.ID, "role": r, "hours": h}).Info("invitation created")
	_ = s.Events.Publish(ctx, queue.ActivityEvent{
		Type:         queue.EventInvitationCreated,
		OccurredAt:   now.Format(time.RFC3339),
		ActorID:      adminID,
		Role:         string(r),
		InvitationID: inv.ID,
		ExpiresAt:    inv.ExpiresAt.Format(time.RFC3339),
	})
	return CreatedInvitation{Invitation: inv, URL: s.InviteURL(token)}, nil
}

// InviteURL is the registration link embedding token.
func (s *InvitationService) InviteURL(token string) string {
	return s.BaseURL + "/register?invite=" + url.QueryEscape(token)
}

// Validate reports whether token can still be used, without consuming it.
func (s *InvitationService) Validate(ctx context.Context, token string) (model.Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.Invitation{}, validation("token is required")
	}
	inv, err := s.Invitations.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Invitation{}, notFound("invalid invitation token")
		}
		return model.Invitation{}, internal("load invitation", err)
	}
	if inv.Used() {
		return model.Invitation{}, validation("invitation has already been used")
	}
	if inv.Expired(s.Now()) {
		return model.Invitation{}, validation("invitation has expired")
	}
	return inv, nil
}

// List returns every invitation, newest first.
func (s *InvitationService) List(ctx context.Context) ([]model.Invitation, error) {
	invs, err := s.Invitations.List(ctx)
	if err != nil {
		return nil, internal("list invitations", err)
	}
	return invs, nil
}

// Revoke deletes an invitation whatever its state.
func (s *InvitationService) Revoke(ctx context.Context, adminID, id uint64) error {
	if err := s.Invitations.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("invitation not found")
		}
		return internal("delete invitation", err)
	}
	metrics.ObserveInvitation("revoked")
	s.Log.WithFields(logrus.Fields{"admin_id": adminID, "invitation_id": id}).Info("invitation revoked")
	return nil
}
