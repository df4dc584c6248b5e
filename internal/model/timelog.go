package model

import (
	"fmt"
	"time"
)

// TimeLogStatus is the admin review state of a time log.
type TimeLogStatus string

const (
	StatusPending  TimeLogStatus = "pending"
	StatusApproved TimeLogStatus = "approved"
	StatusRejected TimeLogStatus = "rejected"
)

// Valid reports whether s is a known review state.
func (s TimeLogStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// MaxNoteLength bounds worker and admin notes, counted in characters.
const MaxNoteLength = 1000

// TimeLog represents a row in the `time_logs` table. A log with a nil
// ClockOutTime is an open session; a worker has at most one.
//
// UserName and UserEmail are only populated by admin listings.
type TimeLog struct {
	ID               uint64
	UserID           uint64
	ClockInTime      time.Time
	ClockInLocation  Location
	ClockOutTime     *time.Time
	ClockOutLocation *Location
	WorkerNote       *string
	AdminNote        *string
	Status           TimeLogStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time

	UserName  string
	UserEmail string
}

// Open reports whether the log has not been clocked out yet.
func (t TimeLog) Open() bool { return t.ClockOutTime == nil }

// DurationMinutes returns the whole minutes worked, or false for an open log.
func (t TimeLog) DurationMinutes() (int64, bool) {
	if t.ClockOutTime == nil {
		return 0, false
	}
	return WorkedMinutes(t.ClockInTime, *t.ClockOutTime), true
}

// Duration renders the worked time as "Xh Ym", or "in progress" when open.
func (t TimeLog) Duration() string {
	if t.ClockOutTime == nil {
		return DurationInProgress
	}
	return FormatDuration(t.ClockInTime, *t.ClockOutTime)
}

// DurationInProgress is reported for open logs.
const DurationInProgress = "in progress"

// WorkedMinutes truncates the interval to whole minutes. Negative intervals
// count as zero.
func WorkedMinutes(in, out time.Time) int64 {
	d := out.Sub(in)
	if d < 0 {
		return 0
	}
	return int64(d / time.Minute)
}

// FormatDuration renders out-in as whole hours and remaining minutes.
func FormatDuration(in, out time.Time) string {
	m := WorkedMinutes(in, out)
	return fmt.Sprintf("%dh %dm", m/60, m%60)
}
