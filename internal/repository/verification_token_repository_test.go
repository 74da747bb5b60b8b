package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-api/internal/model"
)

func TestVerificationTokenRepo_CreateDefaultsActive(t *testing.T) {
	db, mock := newMock(t)
	exp := time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO verification_tokens`).
		WithArgs("t1", "jwt", "u1", exp, "ACTIVE").
		WillReturnResult(sqlmock.NewResult(0, 1))

	tok := &model.VerificationToken{ID: "t1", Token: "jwt", UserID: "u1", ExpiresAt: exp}
	require.NoError(t, NewVerificationTokenRepo(db).Create(context.Background(), tok))
	assert.Equal(t, model.TokenActive, tok.Status)
}

func TestVerificationTokenRepo_FindByToken(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(`FROM verification_tokens WHERE token=\?`).WithArgs("jwt").
		WillReturnRows(sqlmock.NewRows([]string{"id", "token", "user_id", "expires_at", "status", "created_at"}).
			AddRow("t1", "jwt", "u1", now, "USED", now))

	tok, err := NewVerificationTokenRepo(db).FindByToken(context.Background(), "jwt")
	require.NoError(t, err)
	assert.Equal(t, model.TokenUsed, tok.Status)
}

func TestVerificationTokenRepo_MarkUsed_OnlyFromActive(t *testing.T) {
	db, mock := newMock(t)
	q := `UPDATE verification_tokens SET status='USED' WHERE id=\? AND status='ACTIVE'`
	mock.ExpectExec(q).WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewVerificationTokenRepo(db)
	ok, err := repo.MarkUsed(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkUsed(context.Background(), "t1")
	require.NoError(t, err)
	assert.False(t, ok, "a second transition must not apply")
}

func TestVerificationTokenRepo_MarkExpired_Conditional(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`SET status='EXPIRED' WHERE id=\? AND status='ACTIVE'`).
		WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewVerificationTokenRepo(db).MarkExpired(context.Background(), "t1"))
}

func TestVerificationTokenRepo_Sweep(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-30 * time.Minute)

	mock.ExpectExec(`SET status='EXPIRED' WHERE status='ACTIVE' AND expires_at < \?`).
		WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM verification_tokens WHERE status IN \('EXPIRED','USED'\) AND expires_at < \?`).
		WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 2))

	repo := NewVerificationTokenRepo(db)
	n, err := repo.MarkExpiredBefore(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = repo.DeleteStale(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
