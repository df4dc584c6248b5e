// Package repository implements MySQL persistence for users, invitations
// and time logs. Sentinel errors below let the service layer tell failure
// scenarios apart without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a row addressed by id or unique key does not
// exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write loses against concurrent state, such
// as clocking out a log that was already closed.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when the unique email index rejects an insert or
// update.
var ErrEmailExists = errors.New("email already exists")

// ErrAlreadyClockedIn is returned when the one-open-log-per-user index
// rejects a clock-in.
var ErrAlreadyClockedIn = errors.New("open time log exists")

// ErrInvitationUnavailable is returned when an invitation could not be
// consumed because it is used, expired or gone.
var ErrInvitationUnavailable = errors.New("invitation unavailable")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
