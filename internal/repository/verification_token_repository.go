package repository

import (
	"context"
	"time"

	"github.com/iliyamo/storefront-api/internal/model"
)

// VerificationTokenRepo stores emailed verification tokens. Status
// changes are conditional on the row still being ACTIVE, so USED and
// EXPIRED never revert.
type VerificationTokenRepo struct{ DB DBTX }

func NewVerificationTokenRepo(db DBTX) *VerificationTokenRepo {
	return &VerificationTokenRepo{DB: db}
}

// Create inserts t as ACTIVE.
func (r *VerificationTokenRepo) Create(ctx context.Context, t *model.VerificationToken) error {
	if t.Status == "" {
		t.Status = model.TokenActive
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO verification_tokens (id,token,user_id,expires_at,status) VALUES (?,?,?,?,?)",
		t.ID, t.Token, t.UserID, t.ExpiresAt.UTC(), string(t.Status))
	return mapErr(err)
}

// FindByToken fetches the row holding the exact token string.
func (r *VerificationTokenRepo) FindByToken(ctx context.Context, token string) (*model.VerificationToken, error) {
	var (
		t      model.VerificationToken
		status string
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,token,user_id,expires_at,status,created_at FROM verification_tokens WHERE token=? LIMIT 1",
		token).Scan(&t.ID, &t.Token, &t.UserID, &t.ExpiresAt, &status, &t.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	t.Status = model.TokenStatus(status)
	return &t, nil
}

// MarkUsed moves an ACTIVE token to USED. It reports false when the
// token was no longer ACTIVE, i.e. another request consumed it first.
func (r *VerificationTokenRepo) MarkUsed(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE verification_tokens SET status='USED' WHERE id=? AND status='ACTIVE'", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// MarkExpired moves an ACTIVE token to EXPIRED.
func (r *VerificationTokenRepo) MarkExpired(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE verification_tokens SET status='EXPIRED' WHERE id=? AND status='ACTIVE'", id)
	return err
}

// MarkExpiredBefore expires every ACTIVE token whose expiry is before now
// and returns how many rows changed.
func (r *VerificationTokenRepo) MarkExpiredBefore(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE verification_tokens SET status='EXPIRED' WHERE status='ACTIVE' AND expires_at < ?", now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteStale removes EXPIRED and USED tokens that expired before cutoff.
func (r *VerificationTokenRepo) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM verification_tokens WHERE status IN ('EXPIRED','USED') AND expires_at < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
