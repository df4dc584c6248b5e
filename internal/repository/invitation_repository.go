package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/crowlee-bookings/internal/model"
)

// InvitationRepo stores registration invitations in `invitation_tokens`.
type InvitationRepo struct{ DB *sql.DB }

func NewInvitationRepo(db *sql.DB) *InvitationRepo { return &InvitationRepo{DB: db} }

const invitationColumns = "id,token,role,expires_at,used_at,used_by,created_by,created_at"

func scanInvitation(row rowScanner) (model.Invitation, error) {
	var (
		inv       model.Invitation
		role      string
		usedAt    sql.NullTime
		usedBy    sql.NullInt64
		createdBy sql.NullInt64
	)
	if err := row.Scan(&inv.ID, &inv.Token, &role, &inv.ExpiresAt, &usedAt, &usedBy, &createdBy, &inv.CreatedAt); err != nil {
		return model.Invitation{}, err
	}
	inv.Role = model.Role(role)
	if usedAt.Valid {
		t := usedAt.Time
		inv.UsedAt = &t
	}
	inv.UsedBy = nullIDPtr(usedBy)
	inv.CreatedBy = nullIDPtr(createdBy)
	return inv, nil
}

// Create persists inv and returns its id.
func (r *InvitationRepo) Create(ctx context.Context, inv model.Invitation) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO invitation_tokens (token,role,expires_at,created_by) VALUES (?,?,?,?)",
		inv.Token, string(inv.Role), inv.ExpiresAt, inv.CreatedBy)
	if err != nil {
		return 0, fmt.Errorf("insert invitation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByToken fetches an invitation by its opaque token.
func (r *InvitationRepo) GetByToken(ctx context.Context, token string) (model.Invitation, error) {
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx,
		"SELECT "+invitationColumns+" FROM invitation_tokens WHERE token=? LIMIT 1", token))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Invitation{}, ErrNotFound
	}
	return inv, err
}

// List returns every invitation, newest first.
func (r *InvitationRepo) List(ctx context.Context) ([]model.Invitation, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+invitationColumns+" FROM invitation_tokens ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// Delete hard-deletes an invitation regardless of its state.
func (r *InvitationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM invitation_tokens WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
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

func nullIDPtr(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	v := uint64(n.Int64)
	return &v
}
