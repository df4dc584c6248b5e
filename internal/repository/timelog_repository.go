package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/crowlee-bookings/internal/model"
)

// TimeLogRepo persists clock-in/clock-out records in `time_logs`. The schema
// carries a unique index over (user_id, open_marker) so the database rejects
// a second open log for the same user.
type TimeLogRepo struct{ DB *sql.DB }

func NewTimeLogRepo(db *sql.DB) *TimeLogRepo { return &TimeLogRepo{DB: db} }

// TimeLogFilter narrows admin listings. Nil fields match everything.
type TimeLogFilter struct {
	UserID *uint64
	Status *model.TimeLogStatus
}

const timeLogSelect = `SELECT t.id, t.user_id, t.clock_in_time, t.clock_in_location, t.clock_out_time,
	t.clock_out_location, t.worker_note, t.admin_note, t.status, t.created_at, t.updated_at,
	u.name, u.email
FROM time_logs t JOIN users u ON u.id = t.user_id`

func scanTimeLog(row rowScanner) (model.TimeLog, error) {
	var (
		tl         model.TimeLog
		inLoc      string
		outTime    sql.NullTime
		outLoc     sql.NullString
		workerNote sql.NullString
		adminNote  sql.NullString
		status     string
	)
	if err := row.Scan(&tl.ID, &tl.UserID, &tl.ClockInTime, &inLoc, &outTime, &outLoc,
		&workerNote, &adminNote, &status, &tl.CreatedAt, &tl.UpdatedAt, &tl.UserName, &tl.UserEmail); err != nil {
		return model.TimeLog{}, err
	}
	loc, err := model.DecodeLocation(inLoc)
	if err != nil {
		return model.TimeLog{}, fmt.Errorf("time log %d clock-in location: %w", tl.ID, err)
	}
	tl.ClockInLocation = loc
	if outTime.Valid {
		t := outTime.Time
		tl.ClockOutTime = &t
	}
	if outLoc.Valid {
		l, err := model.DecodeLocation(outLoc.String)
		if err != nil {
			return model.TimeLog{}, fmt.Errorf("time log %d clock-out location: %w", tl.ID, err)
		}
		tl.ClockOutLocation = &l
	}
	tl.WorkerNote = nullStringPtr(workerNote)
	tl.AdminNote = nullStringPtr(adminNote)
	tl.Status = model.TimeLogStatus(status)
	return tl, nil
}

func (r *TimeLogRepo) queryLogs(ctx context.Context, query string, args ...any) ([]model.TimeLog, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TimeLog
	for rows.Next() {
		tl, err := scanTimeLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tl)
	}
	return out, rows.Err()
}

func (r *TimeLogRepo) queryLog(ctx context.Context, query string, args ...any) (model.TimeLog, error) {
	tl, err := scanTimeLog(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.TimeLog{}, ErrNotFound
	}
	return tl, err
}

// Create inserts an open time log. ErrAlreadyClockedIn is returned when the
// user already has one.
func (r *TimeLogRepo) Create(ctx context.Context, tl model.TimeLog) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO time_logs (user_id, clock_in_time, clock_in_location, worker_note, status)
		 VALUES (?,?,?,?,?)`,
		tl.UserID, tl.ClockInTime, tl.ClockInLocation.Encode(), tl.WorkerNote, string(tl.Status))
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrAlreadyClockedIn
		}
		return 0, fmt.Errorf("insert time log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a single log with its owner's name and email.
func (r *TimeLogRepo) GetByID(ctx context.Context, id uint64) (model.TimeLog, error) {
	return r.queryLog(ctx, timeLogSelect+" WHERE t.id=? LIMIT 1", id)
}

// GetOpenByUser returns the user's open log or ErrNotFound.
func (r *TimeLogRepo) GetOpenByUser(ctx context.Context, userID uint64) (model.TimeLog, error) {
	return r.queryLog(ctx, timeLogSelect+" WHERE t.user_id=? AND t.clock_out_time IS NULL LIMIT 1", userID)
}

// ListByUser returns the user's logs, newest clock-in first.
func (r *TimeLogRepo) ListByUser(ctx context.Context, userID uint64) ([]model.TimeLog, error) {
	return r.queryLogs(ctx, timeLogSelect+" WHERE t.user_id=? ORDER BY t.clock_in_time DESC, t.id DESC", userID)
}

// List returns logs across users matching f, newest clock-in first.
func (r *TimeLogRepo) List(ctx context.Context, f TimeLogFilter) ([]model.TimeLog, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != nil {
		where = append(where, "t.user_id=?")
		args = append(args, *f.UserID)
	}
	if f.Status != nil {
		where = append(where, "t.status=?")
		args = append(args, string(*f.Status))
	}
	q := timeLogSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY t.clock_in_time DESC, t.id DESC"
	return r.queryLogs(ctx, q, args...)
}

// ClockOut closes an open log. The update only matches while the log is
// still open, so of two concurrent clock-outs exactly one wins; the loser
// gets ErrConflict.
func (r *TimeLogRepo) ClockOut(ctx context.Context, id uint64, at time.Time, loc model.Location, workerNote *string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE time_logs SET clock_out_time=?, clock_out_location=?, worker_note=?
		 WHERE id=? AND clock_out_time IS NULL`,
		at, loc.Encode(), workerNote, id)
	if err != nil {
		return fmt.Errorf("clock out: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// UpdateReview writes the admin-controlled columns of tl.
func (r *TimeLogRepo) UpdateReview(ctx context.Context, tl model.TimeLog) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE time_logs SET status=?, admin_note=?, clock_in_time=?, clock_out_time=? WHERE id=?`,
		string(tl.Status), tl.AdminNote, tl.ClockInTime, tl.ClockOutTime, tl.ID)
	if err != nil {
		return fmt.Errorf("update time log: %w", err)
	}
	return nil
}

// Delete removes a log by id.
func (r *TimeLogRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM time_logs WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete time log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
