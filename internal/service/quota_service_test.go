package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmor/dnslinkbot/internal/config"
	"github.com/velmor/dnslinkbot/internal/repository"
)

const (
	testOperatorID = int64(99)
	testUserID     = int64(1001)
)

func newQuotaService(t *testing.T) (*QuotaService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{AdminID: testOperatorID, DailyLimit: 5}
	return NewQuotaService(cfg, repository.NewQuotaRepository(db)), mock
}

func expectLockedRow(mock sqlmock.Sqlmock, used, bonus int, lastReset string) {
	mock.ExpectExec(regexp.QuoteMeta(`INSERT IGNORE INTO quota (user_id, used, bonus, last_reset) VALUES (?, 0, 0, ?)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT used, bonus, last_reset FROM quota WHERE user_id = ? FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows([]string{"used", "bonus", "last_reset"}).AddRow(used, bonus, lastReset))
}

func TestCheckAndConsumeAllows(t *testing.T) {
	svc, mock := newQuotaService(t)

	mock.ExpectBegin()
	expectLockedRow(mock, 0, 0, today())
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE quota SET used = used + 1 WHERE user_id = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	allowed, remaining, err := svc.CheckAndConsume(context.Background(), testUserID)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 4, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckAndConsumeDeclinesAtLimit(t *testing.T) {
	svc, mock := newQuotaService(t)

	mock.ExpectBegin()
	expectLockedRow(mock, 5, 0, today())
	mock.ExpectRollback()

	allowed, remaining, err := svc.CheckAndConsume(context.Background(), testUserID)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckAndConsumeBonusRaisesLimit(t *testing.T) {
	svc, mock := newQuotaService(t)

	mock.ExpectBegin()
	expectLockedRow(mock, 5, 2, today())
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE quota SET used = used + 1 WHERE user_id = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	allowed, remaining, err := svc.CheckAndConsume(context.Background(), testUserID)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckAndConsumeLazyDailyReset(t *testing.T) {
	svc, mock := newQuotaService(t)
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")

	mock.ExpectBegin()
	expectLockedRow(mock, 5, 0, yesterday)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE quota SET used = 0, last_reset = ? WHERE user_id = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE quota SET used = used + 1 WHERE user_id = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	allowed, remaining, err := svc.CheckAndConsume(context.Background(), testUserID)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 4, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckAndConsumeDeclinedAfterResetStillCommitsReset(t *testing.T) {
	// DailyLimit 0 makes every attempt a decline, so a stale row exercises
	// the commit-the-reset-anyway path.
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc := NewQuotaService(config.Config{AdminID: testOperatorID, DailyLimit: 0}, repository.NewQuotaRepository(db))
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")

	mock.ExpectBegin()
	expectLockedRow(mock, 3, 0, yesterday)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE quota SET used = 0, last_reset = ? WHERE user_id = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	allowed, _, err := svc.CheckAndConsume(context.Background(), testUserID)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckAndConsumeOperatorUnlimited(t *testing.T) {
	svc, mock := newQuotaService(t)

	allowed, remaining, err := svc.CheckAndConsume(context.Background(), testOperatorID)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, UnlimitedRemaining, remaining)
	// No database interaction at all for the operator.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsToday(t *testing.T) {
	svc, mock := newQuotaService(t)

	mock.ExpectBegin()
	expectLockedRow(mock, 2, 3, today())
	mock.ExpectCommit()

	used, bonus, limit, err := svc.StatsToday(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, 2, used)
	assert.Equal(t, 3, bonus)
	assert.Equal(t, 8, limit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantBonus(t *testing.T) {
	svc, mock := newQuotaService(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT IGNORE INTO quota (user_id, used, bonus, last_reset) VALUES (?, 0, 0, ?)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE quota SET bonus = bonus + ? WHERE user_id = ?`)).
		WithArgs(1, testUserID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.GrantBonus(context.Background(), testUserID, 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}
