// Package testutil provides in-memory stores and recorders that stand in for
// MySQL, RabbitMQ and Redis in package tests. The stores honour the same
// invariants as the schema: unique emails, one open time log per user and
// single-use invitations.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/crowlee-bookings/internal/model"
	"github.com/iliyamo/crowlee-bookings/internal/repository"
)

// Store is a shared in-memory database. Use Users, Invitations and TimeLogs
// to obtain the per-table views.
type Store struct {
	mu       sync.Mutex
	users    map[uint64]model.User
	invs     map[uint64]model.Invitation
	logs     map[uint64]model.TimeLog
	nextUser uint64
	nextInv  uint64
	nextLog  uint64

	hooks map[string]func()
}

// Write operations that accept a Before hook.
const (
	OpCreateTimeLog        = "timelog.create"
	OpClockOut             = "timelog.clock_out"
	OpCreateWithInvitation = "user.create_with_invitation"
	OpUpdateProfile        = "user.update_profile"
)

// Before registers fn to run once, without the store lock held, when op is
// next called. Tests use it to commit a competing write between a service's
// pre-check read and its own write.
func (s *Store) Before(op string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hooks == nil {
		s.hooks = map[string]func(){}
	}
	s.hooks[op] = fn
}

func (s *Store) fire(op string) {
	s.mu.Lock()
	fn := s.hooks[op]
	delete(s.hooks, op)
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func NewStore() *Store {
	return &Store{
		users: map[uint64]model.User{},
		invs:  map[uint64]model.Invitation{},
		logs:  map[uint64]model.TimeLog{},
	}
}

func (s *Store) Users() *UserStore             { return &UserStore{s} }
func (s *Store) Invitations() *InvitationStore { return &InvitationStore{s} }
func (s *Store) TimeLogs() *TimeLogStore       { return &TimeLogStore{s} }

// UserCount returns the number of stored users.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// TimeLogCount returns the number of stored time logs.
func (s *Store) TimeLogCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}

// UserStore implements service.UserStore.
type UserStore struct{ s *Store }

func (u *UserStore) emailTaken(email string, except uint64) bool {
	for id, x := range u.s.users {
		if id != except && x.Email == email {
			return true
		}
	}
	return false
}

func (u *UserStore) insert(usr model.User) (uint64, error) {
	usr.Email = model.NormalizeEmail(usr.Email)
	if u.emailTaken(usr.Email, 0) {
		return 0, repository.ErrEmailExists
	}
	u.s.nextUser++
	usr.ID = u.s.nextUser
	u.s.users[usr.ID] = usr
	return usr.ID, nil
}

func (u *UserStore) Create(_ context.Context, usr model.User) (uint64, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	return u.insert(usr)
}

func (u *UserStore) CreateWithInvitation(_ context.Context, usr model.User, token string, now time.Time) (uint64, error) {
	u.s.fire(OpCreateWithInvitation)
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	var inv *model.Invitation
	for id := range u.s.invs {
		x := u.s.invs[id]
		if x.Token == token {
			inv = &x
			break
		}
	}
	if inv == nil || inv.Used() || inv.Expired(now) {
		return 0, repository.ErrInvitationUnavailable
	}
	id, err := u.insert(usr)
	if err != nil {
		return 0, err
	}
	usedAt := now
	inv.UsedAt = &usedAt
	inv.UsedBy = &id
	u.s.invs[inv.ID] = *inv
	return id, nil
}

func (u *UserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	email = model.NormalizeEmail(email)
	for _, x := range u.s.users {
		if x.Email == email {
			return x, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (u *UserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	x, ok := u.s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return x, nil
}

func (u *UserStore) List(_ context.Context) ([]model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	out := make([]model.User, 0, len(u.s.users))
	for _, x := range u.s.users {
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (u *UserStore) Update(_ context.Context, usr model.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, ok := u.s.users[usr.ID]; !ok {
		return repository.ErrNotFound
	}
	usr.Email = model.NormalizeEmail(usr.Email)
	if u.emailTaken(usr.Email, usr.ID) {
		return repository.ErrEmailExists
	}
	u.s.users[usr.ID] = usr
	return nil
}

func (u *UserStore) UpdateProfile(_ context.Context, usr model.User, passwordHash *string) error {
	u.s.fire(OpUpdateProfile)
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	cur, ok := u.s.users[usr.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Name, cur.Phone, cur.Address = usr.Name, usr.Phone, usr.Address
	if passwordHash != nil {
		cur.PasswordHash = *passwordHash
	}
	u.s.users[usr.ID] = cur
	return nil
}

func (u *UserStore) UpdatePassword(_ context.Context, id uint64, hash string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	x, ok := u.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	x.PasswordHash = hash
	u.s.users[id] = x
	return nil
}

func (u *UserStore) Delete(_ context.Context, id uint64) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, ok := u.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(u.s.users, id)
	for lid, l := range u.s.logs {
		if l.UserID == id {
			delete(u.s.logs, lid)
		}
	}
	return nil
}

// InvitationStore implements service.InvitationStore.
type InvitationStore struct{ s *Store }

func (i *InvitationStore) Create(_ context.Context, inv model.Invitation) (uint64, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	i.s.nextInv++
	inv.ID = i.s.nextInv
	i.s.invs[inv.ID] = inv
	return inv.ID, nil
}

func (i *InvitationStore) GetByToken(_ context.Context, token string) (model.Invitation, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	for _, x := range i.s.invs {
		if x.Token == token {
			return x, nil
		}
	}
	return model.Invitation{}, repository.ErrNotFound
}

func (i *InvitationStore) List(_ context.Context) ([]model.Invitation, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	out := make([]model.Invitation, 0, len(i.s.invs))
	for _, x := range i.s.invs {
		out = append(out, x)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })
	return out, nil
}

func (i *InvitationStore) Delete(_ context.Context, id uint64) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	if _, ok := i.s.invs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(i.s.invs, id)
	return nil
}

// TimeLogStore implements service.TimeLogStore.
type TimeLogStore struct{ s *Store }

func (t *TimeLogStore) withUser(l model.TimeLog) model.TimeLog {
	if u, ok := t.s.users[l.UserID]; ok {
		l.UserName, l.UserEmail = u.Name, u.Email
	}
	return l
}

func (t *TimeLogStore) Create(_ context.Context, l model.TimeLog) (uint64, error) {
	t.s.fire(OpCreateTimeLog)
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, x := range t.s.logs {
		if x.UserID == l.UserID && x.Open() {
			return 0, repository.ErrAlreadyClockedIn
		}
	}
	t.s.nextLog++
	l.ID = t.s.nextLog
	t.s.logs[l.ID] = l
	return l.ID, nil
}

func (t *TimeLogStore) GetByID(_ context.Context, id uint64) (model.TimeLog, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	l, ok := t.s.logs[id]
	if !ok {
		return model.TimeLog{}, repository.ErrNotFound
	}
	return t.withUser(l), nil
}

func (t *TimeLogStore) GetOpenByUser(_ context.Context, userID uint64) (model.TimeLog, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, l := range t.s.logs {
		if l.UserID == userID && l.Open() {
			return t.withUser(l), nil
		}
	}
	return model.TimeLog{}, repository.ErrNotFound
}

func (t *TimeLogStore) sorted(keep func(model.TimeLog) bool) []model.TimeLog {
	var out []model.TimeLog
	for _, l := range t.s.logs {
		if keep(l) {
			out = append(out, t.withUser(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ClockInTime.Equal(out[j].ClockInTime) {
			return out[i].ClockInTime.After(out[j].ClockInTime)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (t *TimeLogStore) ListByUser(_ context.Context, userID uint64) ([]model.TimeLog, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.sorted(func(l model.TimeLog) bool { return l.UserID == userID }), nil
}

func (t *TimeLogStore) List(_ context.Context, f repository.TimeLogFilter) ([]model.TimeLog, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.sorted(func(l model.TimeLog) bool {
		if f.UserID != nil && l.UserID != *f.UserID {
			return false
		}
		if f.Status != nil && l.Status != *f.Status {
			return false
		}
		return true
	}), nil
}

func (t *TimeLogStore) ClockOut(_ context.Context, id uint64, at time.Time, loc model.Location, note *string) error {
	t.s.fire(OpClockOut)
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	l, ok := t.s.logs[id]
	if !ok || !l.Open() {
		return repository.ErrConflict
	}
	l.ClockOutTime = &at
	l.ClockOutLocation = &loc
	l.WorkerNote = note
	t.s.logs[id] = l
	return nil
}

func (t *TimeLogStore) UpdateReview(_ context.Context, l model.TimeLog) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	cur, ok := t.s.logs[l.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Status = l.Status
	cur.AdminNote = l.AdminNote
	cur.ClockInTime = l.ClockInTime
	cur.ClockOutTime = l.ClockOutTime
	t.s.logs[l.ID] = cur
	return nil
}

func (t *TimeLogStore) Delete(_ context.Context, id uint64) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.logs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(t.s.logs, id)
	return nil
}
