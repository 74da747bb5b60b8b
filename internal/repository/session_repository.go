package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/storefront-api/internal/model"
)

// SessionRepo persists one row per (user, device). It keeps the *sql.DB
// because the token version increment runs in its own transaction.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

const sessionColumns = "id,user_id,device_hash,refresh_token,user_agent,ip_address,token_version,created_at,updated_at"

func scanSession(row interface{ Scan(...any) error }) (*model.Session, error) {
	var (
		s       model.Session
		refresh sql.NullString
	)
	err := row.Scan(&s.ID, &s.UserID, &s.DeviceHash, &refresh, &s.UserAgent, &s.IPAddress,
		&s.TokenVersion, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if refresh.Valid {
		s.RefreshToken = &refresh.String
	}
	return &s, nil
}

// Upsert creates the session for (UserID, DeviceHash) or, when one already
// exists, clears its refresh token and records the latest user agent and
// IP. token_version is left untouched. The stored row is returned.
func (r *SessionRepo) Upsert(ctx context.Context, s *model.Session) (*model.Session, error) {
	id := s.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO sessions (id,user_id,device_hash,refresh_token,user_agent,ip_address)
		VALUES (?,?,?,NULL,?,?)
		ON DUPLICATE KEY UPDATE refresh_token=NULL, user_agent=VALUES(user_agent), ip_address=VALUES(ip_address)`,
		id, s.UserID, s.DeviceHash, s.UserAgent, s.IPAddress)
	if err != nil {
		return nil, mapErr(err)
	}
	return scanSession(r.DB.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE user_id=? AND device_hash=? LIMIT 1",
		s.UserID, s.DeviceHash))
}

// FindByID fetches a session by id.
func (r *SessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return scanSession(r.DB.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE id=? LIMIT 1", id))
}

// ListByUser returns every session of the user.
func (r *SessionRepo) ListByUser(ctx context.Context, userID string) ([]model.Session, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE user_id=? ORDER BY created_at", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// SetRefreshToken stores the refresh token minted for the session.
func (r *SessionRepo) SetRefreshToken(ctx context.Context, id, token string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE sessions SET refresh_token=? WHERE id=?", token, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Invalidate logs the session out in a single statement: the refresh
// token is cleared and the version bumped so outstanding access tokens
// stop matching.
func (r *SessionRepo) Invalidate(ctx context.Context, id, userID string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET refresh_token=NULL, token_version=token_version+1 WHERE id=? AND user_id=?",
		id, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// IncrementTokenVersion bumps token_version atomically and returns the
// row as it stands after the increment.
func (r *SessionRepo) IncrementTokenVersion(ctx context.Context, id string) (*model.Session, error) {
	var out *model.Session
	err := WithTx(ctx, r.DB, nil, func(ctx context.Context, tx DBTX) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE sessions SET token_version=token_version+1 WHERE id=?", id)
		if err != nil {
			return err
		}
		if err := requireRow(res); err != nil {
			return err
		}
		out, err = scanSession(tx.QueryRowContext(ctx,
			"SELECT "+sessionColumns+" FROM sessions WHERE id=?", id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
