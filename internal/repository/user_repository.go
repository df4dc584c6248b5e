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

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,password_hash,role,phone,address,created_at,updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u       model.User
		role    string
		phone   sql.NullString
		address sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &phone, &address, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	u.Phone = nullStringPtr(phone)
	u.Address = nullStringPtr(address)
	return u, nil
}

// Create inserts u and returns its id. The email is normalized first.
func (r *UserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	return insertUser(ctx, r.DB, u)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertUser(ctx context.Context, ex execer, u model.User) (uint64, error) {
	res, err := ex.ExecContext(ctx,
		"INSERT INTO users (name,email,password_hash,role,phone,address) VALUES (?,?,?,?,?,?)",
		strings.TrimSpace(u.Name), model.NormalizeEmail(u.Email), u.PasswordHash, string(u.Role), u.Phone, u.Address)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CreateWithInvitation inserts u and consumes the invitation token in one
// transaction. The invitation update is conditional on the token still being
// unused and unexpired at now; if it matches no row the user insert is
// rolled back and ErrInvitationUnavailable is returned.
func (r *UserRepo) CreateWithInvitation(ctx context.Context, u model.User, token string, now time.Time) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	id, err := insertUser(ctx, tx, u)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE invitation_tokens SET used_at=?, used_by=?
		 WHERE token=? AND used_at IS NULL AND expires_at > ?`,
		now, id, token, now)
	if err != nil {
		return 0, fmt.Errorf("consume invitation: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n != 1 {
		return 0, ErrInvitationUnavailable
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return id, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", model.NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// List returns all users, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update writes the mutable profile columns and role of u.
func (r *UserRepo) Update(ctx context.Context, u model.User) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, email=?, role=?, phone=?, address=? WHERE id=?",
		strings.TrimSpace(u.Name), model.NormalizeEmail(u.Email), string(u.Role), u.Phone, u.Address, u.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	return r.requireUser(ctx, res, u.ID)
}

// UpdateProfile writes the self-service columns of u and, when passwordHash
// is non-nil, the new hash in the same statement.
func (r *UserRepo) UpdateProfile(ctx context.Context, u model.User, passwordHash *string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, phone=?, address=?, password_hash=COALESCE(?, password_hash) WHERE id=?",
		strings.TrimSpace(u.Name), u.Phone, u.Address, passwordHash, u.ID)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return r.requireUser(ctx, res, u.ID)
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return r.requireUser(ctx, res, id)
}

// Delete removes the user. Time logs cascade in the schema.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
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

// requireUser distinguishes "no such row" from "row unchanged", which MySQL
// both report as zero affected rows.
func (r *UserRepo) requireUser(ctx context.Context, res sql.Result, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	err = r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
