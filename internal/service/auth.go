package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowlee-bookings/internal/metrics"
	"github.com/iliyamo/crowlee-bookings/internal/model"
	"github.com/iliyamo/crowlee-bookings/internal/queue"
	"github.com/iliyamo/crowlee-bookings/internal/repository"
	"github.com/iliyamo/crowlee-bookings/internal/utils"
)

// AuthConfig carries the session and hashing parameters.
type AuthConfig struct {
	Secret     string
	SessionTTL time.Duration
	BcryptCost int
}

// AuthService verifies credentials and issues session tokens.
type AuthService struct {
	Users       UserStore
	Invitations InvitationStore
	Events      queue.Publisher
	Log         logrus.FieldLogger
	Cfg         AuthConfig
	Now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(cfg AuthConfig, users UserStore, invitations InvitationStore, events queue.Publisher, log logrus.FieldLogger) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = utils.SessionTTL
	}
	return &AuthService{Users: users, Invitations: invitations, Events: events, Log: log, Cfg: cfg, Now: time.Now}
}

// RegisterInput is the self-service signup form.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Phone       string
	Address     string
	InviteToken string
}

// AuthResult is a user together with the session issued for it.
type AuthResult struct {
	User    model.User
	Session utils.SessionToken
}

// Login checks email and password and issues a session. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, validation("email and password are required")
	}
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// keep the response time close to a real bcrypt comparison
			utils.VerifyPassword(s.timingHash(), password)
			metrics.ObserveAuth("login", "invalid")
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, internal("load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		metrics.ObserveAuth("login", "invalid")
		return AuthResult{}, ErrInvalidCredentials
	}

	sess, err := s.issue(u)
	if err != nil {
		return AuthResult{}, err
	}
	metrics.ObserveAuth("login", "success")
	s.Log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("login")
	return AuthResult{User: u, Session: sess}, nil
}

// Register creates an account and issues a session for it. With an
// invitation token the account takes the invitation's role, and the user
// insert and invitation consumption commit together or not at all.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = model.NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.InviteToken = strings.TrimSpace(in.InviteToken)
	if in.Name == "" || in.Email == "" || in.Password == "" || in.Phone == "" {
		return AuthResult{}, validation("name, email, password and phone are required")
	}
	if err := utils.CheckPasswordPolicy(in.Password); err != nil {
		return AuthResult{}, validation(err.Error())
	}

	now := s.Now().UTC()
	if _, err := s.Users.GetByEmail(ctx, in.Email); err == nil {
		metrics.ObserveAuth("register", "conflict")
		return AuthResult{}, conflict("email already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, internal("check email", err)
	}

	role := model.RoleClient
	if in.InviteToken != "" {
		inv, err := s.checkInvitation(ctx, in.InviteToken, now)
		if err != nil {
			metrics.ObserveAuth("register", "invitation_rejected")
			return AuthResult{}, err
		}
		role = inv.Role
	}

	hash, err := utils.HashPassword(in.Password, s.Cfg.BcryptCost)
	if err != nil {
		return AuthResult{}, internal("hash password", err)
	}
	u := model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Phone:        &in.Phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if addr := strings.TrimSpace(in.Address); addr != "" {
		u.Address = &addr
	}

	if in.InviteToken != "" {
		u.ID, err = s.Users.CreateWithInvitation(ctx, u, in.InviteToken, now)
	} else {
		u.ID, err = s.Users.Create(ctx, u)
	}
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		metrics.ObserveAuth("register", "conflict")
		return AuthResult{}, conflict("email already registered")
	case errors.Is(err, repository.ErrInvitationUnavailable):
		metrics.ObserveAuth("register", "invitation_rejected")
		return AuthResult{}, conflict("invitation is no longer valid")
	case err != nil:
		return AuthResult{}, internal("create user", err)
	}

	sess, err := s.issue(u)
	if err != nil {
		return AuthResult{}, err
	}
	metrics.ObserveAuth("register", "success")
	s.Log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role, "invited": in.InviteToken != ""}).Info("user registered")
	_ = s.Events.Publish(ctx, queue.ActivityEvent{
		Type:       queue.EventUserRegistered,
		OccurredAt: now.Format(time.RFC3339),
		UserID:     u.ID,
		Email:      u.Email,
		Role:       string(u.Role),
	})
	return AuthResult{User: u, Session: sess}, nil
}

// checkInvitation reports why token cannot be used for a signup at now.
func (s *AuthService) checkInvitation(ctx context.Context, token string, now time.Time) (model.Invitation, error) {
	inv, err := s.Invitations.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Invitation{}, validation("invalid invitation token")
		}
		return model.Invitation{}, internal("load invitation", err)
	}
	if inv.Used() {
		return model.Invitation{}, conflict("invitation has already been used")
	}
	if inv.Expired(now) {
		return model.Invitation{}, validation("invitation has expired")
	}
	return inv, nil
}

func (s *AuthService) issue(u model.User) (utils.SessionToken, error) {
	sess, err := utils.IssueSession(s.Cfg.Secret, u.ID, u.Email, string(u.Role), s.Now(), s.Cfg.SessionTTL)
	if err != nil {
		return utils.SessionToken{}, internal("issue session", err)
	}
	return sess, nil
}

func (s *AuthService) timingHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = utils.HashPassword("timing-equalizer", s.Cfg.BcryptCost)
	})
	return s.dummyHash
}
