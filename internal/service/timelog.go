package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowlee-bookings/internal/metrics"
	"github.com/iliyamo/crowlee-bookings/internal/model"
	"github.com/iliyamo/crowlee-bookings/internal/queue"
	"github.com/iliyamo/crowlee-bookings/internal/repository"
)

const (
	msgAlreadyClockedIn  = "You are already clocked in. Please clock out first."
	msgAlreadyClockedOut = "This time log is already clocked out"
	msgTimeLogNotFound   = "time log not found"
	msgClockOrder        = "clock out time must be after clock in time"
)

// TimeLogService runs the clock-in/clock-out workflow and admin review.
type TimeLogService struct {
	Logs   TimeLogStore
	Events queue.Publisher
	Log    logrus.FieldLogger
	Now    func() time.Time
}

func NewTimeLogService(logs TimeLogStore, events queue.Publisher, log logrus.FieldLogger) *TimeLogService {
	return &TimeLogService{Logs: logs, Events: events, Log: log, Now: time.Now}
}

// ClockInput is the payload of a clock-in or clock-out.
type ClockInput struct {
	Location json.RawMessage
	Note     string
}

// AdminUpdateInput is a partial admin edit. Nil fields are left unchanged.
// An empty AdminNote clears the note.
type AdminUpdateInput struct {
	Status        *string
	AdminNote     *string
	ClockInTime   *time.Time
	ClockOutTime  *time.Time
	ForceClockOut bool
}

func parseClockInput(in ClockInput, what string) (model.Location, *string, error) {
	loc, err := model.ParseLocation(in.Location)
	if err != nil {
		if errors.Is(err, model.ErrLocationMissing) {
			return model.Location{}, nil, validation(what + " location is required")
		}
		return model.Location{}, nil, validation(err.Error())
	}
	note := strings.TrimSpace(in.Note)
	if utf8.RuneCountInString(note) > model.MaxNoteLength {
		return model.Location{}, nil, validation("worker note must be at most 1000 characters")
	}
	if note == "" {
		return loc, nil, nil
	}
	return loc, &note, nil
}

// ClockIn opens a time log for the worker. A worker with an open log gets a
// conflict; the store's unique index closes the race between two concurrent
// clock-ins.
func (s *TimeLogService) ClockIn(ctx context.Context, userID uint64, in ClockInput) (model.TimeLog, error) {
	loc, note, err := parseClockInput(in, "clock in")
	if err != nil {
		metrics.ObserveTimeLog("clock_in", "invalid")
		return model.TimeLog{}, err
	}

	if _, err := s.Logs.GetOpenByUser(ctx, userID); err == nil {
		metrics.ObserveTimeLog("clock_in", "conflict")
		return model.TimeLog{}, conflict(msgAlreadyClockedIn)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.TimeLog{}, internal("load open time log", err)
	}

	now := s.Now().UTC()
	tl := model.TimeLog{
		UserID:          userID,
		ClockInTime:     now,
		ClockInLocation: loc,
		WorkerNote:      note,
		Status:          model.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	tl.ID, err = s.Logs.Create(ctx, tl)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyClockedIn) {
			metrics.ObserveTimeLog("clock_in", "conflict")
			return model.TimeLog{}, conflict(msgAlreadyClockedIn)
		}
		return model.TimeLog{}, internal("create time log", err)
	}

	metrics.ObserveTimeLog("clock_in", "success")
	s.Log.WithFields(logrus.Fields{"user_id": userID, "time_log_id": tl.ID}).Info("clocked in")
	_ = s.Events.Publish(ctx, queue.ActivityEvent{
		Type:       queue.EventTimeLogClockedIn,
		OccurredAt: now.Format(time.RFC3339),
		UserID:     userID,
		TimeLogID:  tl.ID,
	})
	return tl, nil
}

// ClockOut closes the caller's open log. The worker note is replaced only
// when a new one is supplied.
func (s *TimeLogService) ClockOut(ctx context.Context, userID, id uint64, in ClockInput) (model.TimeLog, error) {
	loc, note, err := parseClockInput(in, "clock out")
	if err != nil {
		metrics.ObserveTimeLog("clock_out", "invalid")
		return model.TimeLog{}, err
	}

	tl, err := s.Logs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.TimeLog{}, notFound(msgTimeLogNotFound)
		}
		return model.TimeLog{}, internal("load time log", err)
	}
	if tl.UserID != userID {
		return model.TimeLog{}, forbidden("you can only clock out your own time logs")
	}
	if !tl.Open() {
		metrics.ObserveTimeLog("clock_out", "conflict")
		return model.TimeLog{}, conflict(msgAlreadyClockedOut)
	}

	now := s.Now().UTC()
	if now.Before(tl.ClockInTime) {
		return model.TimeLog{}, validation(msgClockOrder)
	}
	if note == nil {
		note = tl.WorkerNote
	}
	if err := s.Logs.ClockOut(ctx, id, now, loc, note); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			metrics.ObserveTimeLog("clock_out", "conflict")
			return model.TimeLog{}, conflict(msgAlreadyClockedOut)
		}
		return model.TimeLog{}, internal("clock out", err)
	}

	tl.ClockOutTime = &now
	tl.ClockOutLocation = &loc
	tl.WorkerNote = note
	tl.UpdatedAt = now

	minutes, _ := tl.DurationMinutes()
	metrics.ObserveTimeLog("clock_out", "success")
	metrics.ObserveWorkedMinutes(minutes)
	s.Log.WithFields(logrus.Fields{"user_id": userID, "time_log_id": id, "duration": tl.Duration()}).Info("clocked out")
	_ = s.Events.Publish(ctx, queue.ActivityEvent{
		Type:       queue.EventTimeLogClockedOut,
		OccurredAt: now.Format(time.RFC3339),
		UserID:     userID,
		TimeLogID:  id,
		Duration:   tl.Duration(),
	})
	return tl, nil
}

// ListOwn returns the worker's logs, newest clock-in first.
func (s *TimeLogService) ListOwn(ctx context.Context, userID uint64) ([]model.TimeLog, error) {
	logs, err := s.Logs.ListByUser(ctx, userID)
	if err != nil {
		return nil, internal("list time logs", err)
	}
	return logs, nil
}

// Active returns the worker's open log, or nil when clocked out.
func (s *TimeLogService) Active(ctx context.Context, userID uint64) (*model.TimeLog, error) {
	tl, err := s.Logs.GetOpenByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, internal("load open time log", err)
	}
	return &tl, nil
}

// Get returns a single log to its owner or an admin.
func (s *TimeLogService) Get(ctx context.Context, actor model.Actor, id uint64) (model.TimeLog, error) {
	tl, err := s.Logs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.TimeLog{}, notFound(msgTimeLogNotFound)
		}
		return model.TimeLog{}, internal("load time log", err)
	}
	if !actor.CanAccess(tl.UserID) {
		return model.TimeLog{}, forbidden("forbidden")
	}
	return tl, nil
}

// AdminList returns logs across all workers.
func (s *TimeLogService) AdminList(ctx context.Context, f repository.TimeLogFilter) ([]model.TimeLog, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, validation(invalidStatusMsg())
	}
	logs, err := s.Logs.List(ctx, f)
	if err != nil {
		return nil, internal("list time logs", err)
	}
	return logs, nil
}

func invalidStatusMsg() string {
	return "invalid status. Must be one of: " +
		strings.Join([]string{string(model.StatusPending), string(model.StatusApproved), string(model.StatusRejected)}, ", ")
}

// AdminUpdate applies a review or correction. The ordering of clock-in and
// clock-out is checked against the values that would result from the edit.
func (s *TimeLogService) AdminUpdate(ctx context.Context, adminID, id uint64, in AdminUpdateInput) (model.TimeLog, error) {
	var status model.TimeLogStatus
	if in.Status != nil {
		status = model.TimeLogStatus(strings.ToLower(strings.TrimSpace(*in.Status)))
		if !status.Valid() {
			return model.TimeLog{}, validation(invalidStatusMsg())
		}
	}
	if in.AdminNote != nil && utf8.RuneCountInString(*in.AdminNote) > model.MaxNoteLength {
		return model.TimeLog{}, validation("admin note must be at most 1000 characters")
	}

	tl, err := s.Logs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.TimeLog{}, notFound(msgTimeLogNotFound)
		}
		return model.TimeLog{}, internal("load time log", err)
	}

	now := s.Now().UTC()
	if in.Status != nil {
		tl.Status = status
	}
	if in.AdminNote != nil {
		if note := strings.TrimSpace(*in.AdminNote); note != "" {
			tl.AdminNote = &note
		} else {
			tl.AdminNote = nil
		}
	}
	if in.ClockInTime != nil {
		tl.ClockInTime = in.ClockInTime.UTC()
	}
	if in.ClockOutTime != nil {
		out := in.ClockOutTime.UTC()
		tl.ClockOutTime = &out
	} else if in.ForceClockOut && tl.Open() {
		tl.ClockOutTime = &now
	}
	if tl.ClockOutTime != nil && tl.ClockOutTime.Before(tl.ClockInTime) {
		metrics.ObserveTimeLog("review", "invalid")
		return model.TimeLog{}, validation(msgClockOrder)
	}

	if err := s.Logs.UpdateReview(ctx, tl); err != nil {
		return model.TimeLog{}, internal("update time log", err)
	}
	tl.UpdatedAt = now

	metrics.ObserveTimeLog("review", "success")
	s.Log.WithFields(logrus.Fields{"admin_id": adminID, "time_log_id": id, "status": tl.Status}).Info("time log reviewed")
	_ = s.Events.Publish(ctx, queue.ActivityEvent{
		Type:       queue.EventTimeLogReviewed,
		OccurredAt: now.Format(time.RFC3339),
		UserID:     tl.UserID,
		ActorID:    adminID,
		TimeLogID:  id,
		Status:     string(tl.Status),
		Duration:   tl.Duration(),
	})
	return tl, nil
}

// AdminDelete removes a log.
func (s *TimeLogService) AdminDelete(ctx context.Context, adminID, id uint64) error {
	if err := s.Logs.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(msgTimeLogNotFound)
		}
		return internal("delete time log", err)
	}
	s.Log.WithFields(logrus.Fields{"admin_id": adminID, "time_log_id": id}).Info("time log deleted")
	return nil
}
