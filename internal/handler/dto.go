package handler

import (
	"time"

	"github.com/iliyamo/crowlee-bookings/internal/model"
)

// userJSON is the public view of a user. The password hash never leaves
// the service.
type userJSON struct {
	ID        uint64     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	Phone     *string    `json:"phone"`
	Address   *string    `json:"address"`
	CreatedAt time.Time  `json:"createdAt"`
}

func toUserJSON(u model.User) userJSON {
	return userJSON{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Phone:     u.Phone,
		Address:   u.Address,
		CreatedAt: u.CreatedAt,
	}
}

func toUsersJSON(us []model.User) []userJSON {
	out := make([]userJSON, 0, len(us))
	for _, u := range us {
		out = append(out, toUserJSON(u))
	}
	return out
}

type timeLogUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type timeLogJSON struct {
	ID               uint64              `json:"id"`
	UserID           uint64              `json:"userId"`
	ClockInTime      time.Time           `json:"clockInTime"`
	ClockInLocation  model.Location      `json:"clockInLocation"`
	ClockOutTime     *time.Time          `json:"clockOutTime"`
	ClockOutLocation *model.Location     `json:"clockOutLocation"`
	WorkerNote       *string             `json:"workerNote"`
	AdminNote        *string             `json:"adminNote"`
	Status           model.TimeLogStatus `json:"status"`
	Duration         string              `json:"duration"`
	DurationMinutes  *int64              `json:"durationMinutes"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
	User             *timeLogUser        `json:"user,omitempty"`
}

func toTimeLogJSON(t model.TimeLog) timeLogJSON {
	out := timeLogJSON{
		ID:               t.ID,
		UserID:           t.UserID,
		ClockInTime:      t.ClockInTime,
		ClockInLocation:  t.ClockInLocation,
		ClockOutTime:     t.ClockOutTime,
		ClockOutLocation: t.ClockOutLocation,
		WorkerNote:       t.WorkerNote,
		AdminNote:        t.AdminNote,
		Status:           t.Status,
		Duration:         t.Duration(),
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	if m, ok := t.DurationMinutes(); ok {
		out.DurationMinutes = &m
	}
	if t.UserName != "" || t.UserEmail != "" {
		out.User = &timeLogUser{Name: t.UserName, Email: t.UserEmail}
	}
	return out
}

func toTimeLogsJSON(ls []model.TimeLog) []timeLogJSON {
	out := make([]timeLogJSON, 0, len(ls))
	for _, l := range ls {
		out = append(out, toTimeLogJSON(l))
	}
	return out
}

type invitationJSON struct {
	ID        uint64     `json:"id"`
	Token     string     `json:"token"`
	Role      model.Role `json:"role"`
	Status    string     `json:"status"`
	ExpiresAt time.Time  `json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt"`
	UsedBy    *uint64    `json:"usedBy"`
	CreatedBy *uint64    `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
	InviteURL string     `json:"inviteUrl,omitempty"`
}

func toInvitationJSON(inv model.Invitation, now time.Time, url string) invitationJSON {
	return invitationJSON{
		ID:        inv.ID,
		Token:     inv.Token,
		Role:      inv.Role,
		Status:    inv.Status(now),
		ExpiresAt: inv.ExpiresAt,
		UsedAt:    inv.UsedAt,
		UsedBy:    inv.UsedBy,
		CreatedBy: inv.CreatedBy,
		CreatedAt: inv.CreatedAt,
		InviteURL: url,
	}
}
