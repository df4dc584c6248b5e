package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowlee-bookings/internal/model"
	"github.com/iliyamo/crowlee-bookings/internal/repository"
	"github.com/iliyamo/crowlee-bookings/internal/utils"
)

// UserService covers admin account management and self-service profile
// edits. Changes that alter what a session may do revoke the user's
// existing sessions when a revoker is configured.
type UserService struct {
	Users      UserStore
	Revoker    SessionRevoker
	Log        logrus.FieldLogger
	BcryptCost int
	Now        func() time.Time
}

func NewUserService(users UserStore, revoker SessionRevoker, bcryptCost int, log logrus.FieldLogger) *UserService {
	return &UserService{Users: users, Revoker: revoker, Log: log, BcryptCost: bcryptCost, Now: time.Now}
}

// UserUpdate is a partial edit. Nil fields are left unchanged; empty phone
// or address clears the value.
type UserUpdate struct {
	Name    *string
	Email   *string
	Role    *string
	Phone   *string
	Address *string
}

// ProfileUpdate is what users may change about themselves.
type ProfileUpdate struct {
	Name     *string
	Phone    *string
	Address  *string
	Password *string
}

// Get loads a user by id.
func (s *UserService) Get(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, notFound("user not found")
		}
		return model.User{}, internal("load user", err)
	}
	return u, nil
}

// NewUser is an account created directly by an operator.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     string
	Phone    string
}

// Create adds an account with an explicit role, bypassing invitations. The
// password must satisfy the signup policy.
func (s *UserService) Create(ctx context.Context, in NewUser) (model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := model.NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return model.User{}, validation("name, email and password are required")
	}
	role, ok := model.ParseRole(in.Role)
	if !ok {
		return model.User{}, validation("role must be admin, worker or client")
	}
	if err := utils.CheckPasswordPolicy(in.Password); err != nil {
		return model.User{}, validation(err.Error())
	}
	hash, err := utils.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return model.User{}, internal("hash password", err)
	}
	now := s.Now().UTC()
	u := model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Phone:        optional(in.Phone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.ID, err = s.Users.Create(ctx, u)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, conflict("email already registered")
		}
		return model.User{}, internal("create user", err)
	}
	s.Log.WithFields(logrus.Fields{"user_id": u.ID, "role": role}).Info("user created")
	return u, nil
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.Users.List(ctx)
	if err != nil {
		return nil, internal("list users", err)
	}
	return users, nil
}

// AdminUpdate edits another user's account. A role change revokes the
// user's sessions so the old role stops being honoured.
func (s *UserService) AdminUpdate(ctx context.Context, actor model.Actor, id uint64, in UserUpdate) (model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	oldRole := u.Role

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return model.User{}, validation("name cannot be empty")
		}
		u.Name = name
	}
	if in.Email != nil {
		email := model.NormalizeEmail(*in.Email)
		if email == "" || !strings.Contains(email, "@") {
			return model.User{}, validation("invalid email")
		}
		u.Email = email
	}
	if in.Role != nil {
		r, ok := model.ParseRole(*in.Role)
		if !ok {
			return model.User{}, validation("role must be admin, worker or client")
		}
		if actor.UserID == id && r != model.RoleAdmin {
			return model.User{}, validation("you cannot remove your own admin role")
		}
		u.Role = r
	}
	if in.Phone != nil {
		u.Phone = optional(*in.Phone)
	}
	if in.Address != nil {
		u.Address = optional(*in.Address)
	}

	if err := s.Users.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return model.User{}, conflict("email already registered")
		case errors.Is(err, repository.ErrNotFound):
			return model.User{}, notFound("user not found")
		}
		return model.User{}, internal("update user", err)
	}
	if u.Role != oldRole {
		s.revoke(ctx, id, "role changed")
	}
	s.Log.WithFields(logrus.Fields{"admin_id": actor.UserID, "user_id": id, "role": u.Role}).Info("user updated")
	return u, nil
}

// ResetPassword sets a new password chosen by an admin and revokes the
// user's sessions.
func (s *UserService) ResetPassword(ctx context.Context, actor model.Actor, id uint64, password string) error {
	if utf8.RuneCountInString(password) < utils.MinAdminResetLength {
		return validation("password must be at least 6 characters long")
	}
	hash, err := utils.HashPassword(password, s.BcryptCost)
	if err != nil {
		return internal("hash password", err)
	}
	if err := s.Users.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("user not found")
		}
		return internal("update password", err)
	}
	s.revoke(ctx, id, "password reset")
	s.Log.WithFields(logrus.Fields{"admin_id": actor.UserID, "user_id": id}).Info("password reset")
	return nil
}

// Delete removes a user. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actor model.Actor, id uint64) error {
	if actor.UserID == id {
		return validation("you cannot delete your own account")
	}
	if err := s.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("user not found")
		}
		return internal("delete user", err)
	}
	s.revoke(ctx, id, "user deleted")
	s.Log.WithFields(logrus.Fields{"admin_id": actor.UserID, "user_id": id}).Info("user deleted")
	return nil
}

// UpdateProfile applies a self-service edit. A new password must satisfy
// the signup policy.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint64, in ProfileUpdate) (model.User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return model.User{}, validation("name cannot be empty")
		}
		u.Name = name
	}
	if in.Phone != nil {
		u.Phone = optional(*in.Phone)
	}
	if in.Address != nil {
		u.Address = optional(*in.Address)
	}
	var hash *string
	if in.Password != nil && *in.Password != "" {
		if err := utils.CheckPasswordPolicy(*in.Password); err != nil {
			return model.User{}, validation(err.Error())
		}
		h, err := utils.HashPassword(*in.Password, s.BcryptCost)
		if err != nil {
			return model.User{}, internal("hash password", err)
		}
		hash = &h
	}
	if err := s.Users.UpdateProfile(ctx, u, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, notFound("user not found")
		}
		return model.User{}, internal("update profile", err)
	}
	if hash != nil {
		u.PasswordHash = *hash
	}
	s.Log.WithField("user_id", userID).Info("profile updated")
	return u, nil
}

func (s *UserService) revoke(ctx context.Context, userID uint64, reason string) {
	if s.Revoker == nil {
		return
	}
	if err := s.Revoker.RevokeUser(ctx, userID, s.Now()); err != nil {
		s.Log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "reason": reason}).Warn("session revocation failed")
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
